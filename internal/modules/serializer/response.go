package serializer

import "net/http"

type Response struct {
	Code  int    `json:"code"`
	Data  any    `json:"data,omitempty"`
	Msg   string `json:"msg"`
	Error string `json:"error,omitempty"`
}

func Err(code int, msg string, err error) Response {
	res := Response{
		Code: code,
		Msg:  msg,
	}
	if err != nil {
		res.Error = err.Error()
		if msg == "" {
			res.Msg = err.Error()
		}
	}
	return res
}

func ParamErr(msg string, err error) Response {
	if msg == "" {
		msg = "invalid parameters"
	}
	return Err(http.StatusBadRequest, msg, err)
}

func AuthErr(msg string) Response {
	if msg == "" {
		msg = "unauthorized"
	}
	return Err(http.StatusUnauthorized, msg, nil)
}

func NotFoundErr(msg string, err error) Response {
	if msg == "" {
		msg = "not found"
	}
	return Err(http.StatusNotFound, msg, err)
}

func ConflictErr(msg string, err error) Response {
	return Err(http.StatusConflict, msg, err)
}

func DBErr(msg string, err error) Response {
	if msg == "" {
		msg = "database error"
	}
	return Err(http.StatusInternalServerError, msg, err)
}

func UpstreamErr(msg string, err error) Response {
	if msg == "" {
		msg = "upstream service error"
	}
	return Err(http.StatusBadGateway, msg, err)
}
