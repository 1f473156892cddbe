// Package geo acquires a single position fix for the capture workflow and
// derives the map links shown for an artifact.
package geo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

const DefaultTimeout = 10 * time.Second

var (
	ErrUnsupported      = errors.New("geolocation is not supported")
	ErrPermissionDenied = errors.New("location permission denied")
	ErrTimeout          = errors.New("location request timed out")
	ErrUnavailable      = errors.New("position unavailable")
	ErrInvalidFix       = errors.New("invalid position fix")
)

// Coordinates is one resolved fix. Accuracy is the radius of uncertainty in meters.
type Coordinates struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	Accuracy  float64 `json:"accuracy" validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c Coordinates) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFix, err)
	}
	return nil
}

type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
}

// Provider is the device positioning capability.
type Provider interface {
	CurrentPosition(ctx context.Context, opts Options) (Coordinates, error)
}

type Locator struct {
	timeout time.Duration
}

func NewLocator(timeout time.Duration) *Locator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Locator{timeout: timeout}
}

// Acquire requests one high accuracy fix and waits at most the locator timeout.
// A nil provider means the capability is absent. No retry is attempted.
func (l *Locator) Acquire(ctx context.Context, p Provider) (Coordinates, error) {
	if p == nil {
		return Coordinates{}, ErrUnsupported
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	type result struct {
		c   Coordinates
		err error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := p.CurrentPosition(ctx, Options{HighAccuracy: true, Timeout: l.timeout})
		ch <- result{c, err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Coordinates{}, ErrTimeout
		}
		return Coordinates{}, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				return Coordinates{}, ErrTimeout
			}
			return Coordinates{}, r.err
		}
		if err := r.c.Validate(); err != nil {
			return Coordinates{}, err
		}
		return r.c, nil
	}
}

// Error codes a device relays when its own position request failed.
const (
	CodePermissionDenied = "permission_denied"
	CodeUnavailable      = "position_unavailable"
	CodeTimeout          = "timeout"
	CodeUnsupported      = "unsupported"
)

// Reported replays a fix (or failure) produced on the field device.
type Reported struct {
	Fix       *Coordinates
	ErrorCode string
}

func (r Reported) CurrentPosition(ctx context.Context, _ Options) (Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return Coordinates{}, err
	}
	switch r.ErrorCode {
	case "":
	case CodePermissionDenied:
		return Coordinates{}, ErrPermissionDenied
	case CodeTimeout:
		return Coordinates{}, ErrTimeout
	case CodeUnsupported:
		return Coordinates{}, ErrUnsupported
	default:
		return Coordinates{}, ErrUnavailable
	}
	if r.Fix == nil {
		return Coordinates{}, ErrUnavailable
	}
	return *r.Fix, nil
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, opts Options) (Coordinates, error)

func (f ProviderFunc) CurrentPosition(ctx context.Context, opts Options) (Coordinates, error) {
	return f(ctx, opts)
}

// Notice is the user facing message for an acquisition outcome.
func Notice(err error) string {
	switch {
	case err == nil:
		return "Location captured"
	case errors.Is(err, ErrUnsupported):
		return "Geolocation is not supported by your browser"
	default:
		return "Unable to get location. Please enable location services."
	}
}

func formatFloat(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}

func rawCoords(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)
}

// MapsURL is the external map link for a point.
func MapsURL(lat, lon float64) string {
	return "https://www.google.com/maps?q=" + rawCoords(lat, lon)
}

// EmbedURL is the iframe source for the location preview.
func EmbedURL(lat, lon float64) string {
	return "https://maps.google.com/maps?q=" + rawCoords(lat, lon) + "&output=embed"
}

// FormatCoordinates renders "lat, lon" with six decimals.
func FormatCoordinates(lat, lon float64) string {
	return formatFloat(lat, 6) + ", " + formatFloat(lon, 6)
}

// FormatAccuracy renders "±r meters" with one decimal, or "" when unknown.
func FormatAccuracy(acc *float64) string {
	if acc == nil {
		return ""
	}
	return "±" + formatFloat(*acc, 1) + " meters"
}
