package service

import (
	"strings"

	"github.com/sitescan/sitescan/internal/config"
)

const Brand = "SiteScan"

// NavItem is one entry in the bottom navigation.
type NavItem struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Active bool   `json:"active"`
}

// ShellView is the persistent chrome around every page.
type ShellView struct {
	Brand      string    `json:"brand"`
	HomePath   string    `json:"home_path"`
	ThemeColor string    `json:"theme_color"`
	Nav        []NavItem `json:"nav"`
	QuickNote  string    `json:"quick_note_endpoint"`
	Assistant  string    `json:"assistant_endpoint"`
	Logout     string    `json:"logout_endpoint"`
}

var navPages = []string{"Capture", "Gallery", "Notes"}

// PagePath is the client route of a named page.
func PagePath(page string) string { return "/" + page }

// ShellService builds the shell view for a page.
type ShellService struct {
	themeColor string
	apiPrefix  string
}

func NewShellService(cfg *config.Config, apiPrefix string) *ShellService {
	return &ShellService{themeColor: cfg.UI.ThemeColor, apiPrefix: strings.TrimRight(apiPrefix, "/")}
}

// Shell marks the nav item matching page as active. Page names compare
// exactly; an unknown page leaves every item inactive.
func (s *ShellService) Shell(page string) ShellView {
	nav := make([]NavItem, 0, len(navPages))
	for _, p := range navPages {
		nav = append(nav, NavItem{Name: p, Path: PagePath(p), Active: p == page})
	}
	return ShellView{
		Brand:      Brand,
		HomePath:   PagePath("Capture"),
		ThemeColor: s.themeColor,
		Nav:        nav,
		QuickNote:  s.apiPrefix + "/note",
		Assistant:  s.apiPrefix + "/assistant/conversations",
		Logout:     s.apiPrefix + "/auth/logout",
	}
}
