// Package registry reads option metadata from a DHIS2 instance.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/artpar/villagelookup/internal/core/domain"
	"github.com/artpar/villagelookup/internal/core/linkage"
	"github.com/go-resty/resty/v2"
)

// =============================================================================
// Wire Types
// =============================================================================

// Option is a DHIS2 option with its translations.
type Option struct {
	ID           string                `json:"id"`
	Code         *string               `json:"code"`
	Name         string                `json:"name"`
	Translations []linkage.Translation `json:"translations"`
}

// AreaOption converts the option into loader input, resolving the Burmese
// name from the translations.
func (o Option) AreaOption() domain.AreaOption {
	return domain.AreaOption{
		UID:    o.ID,
		Code:   o.Code,
		Name:   o.Name,
		NameMy: linkage.LocalizedName(o.Translations),
	}
}

type optionsResponse struct {
	Options []Option `json:"options"`
}

// OptionRef is a member reference inside an option group.
type OptionRef struct {
	ID string `json:"id"`
}

// OptionGroup is a DHIS2 option group reduced to its member ids.
type OptionGroup struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Options []OptionRef `json:"options"`
}

// Linkage converts the group into linkage input.
func (g OptionGroup) Linkage() linkage.OptionGroup {
	uids := make([]string, 0, len(g.Options))
	for _, o := range g.Options {
		uids = append(uids, o.ID)
	}
	return linkage.OptionGroup{Name: g.Name, OptionUIDs: uids}
}

type optionGroupsResponse struct {
	OptionGroups []OptionGroup `json:"optionGroups"`
}

// =============================================================================
// Client
// =============================================================================

// Config holds configuration for the registry client.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// DefaultConfig returns default registry configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080",
		Timeout: 180 * time.Second,
	}
}

// Client fetches options and option groups over the DHIS2 Web API using
// basic authentication.
type Client struct {
	httpClient *resty.Client
	logger     *slog.Logger
}

// NewClient creates a registry client. logger may be nil.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 180 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetBasicAuth(cfg.Username, cfg.Password).
		SetHeader("Accept", "application/json")

	return &Client{httpClient: client, logger: logger}
}

// FetchOptions returns every option of an option set, including translations.
func (c *Client) FetchOptions(ctx context.Context, optionSetUID string) ([]Option, error) {
	var result optionsResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"filter": "optionSet.id:eq:" + optionSetUID,
			"fields": "id,code,name,translations",
			"paging": "false",
		}).
		SetResult(&result).
		Get("/api/options")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch options for option set %s: %w", optionSetUID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch options for option set %s: unexpected status %d", optionSetUID, resp.StatusCode())
	}

	c.logger.Debug("fetched options",
		"option_set", optionSetUID,
		"count", len(result.Options),
	)
	return result.Options, nil
}

// FetchOptionGroups returns every option group with member option ids.
func (c *Client) FetchOptionGroups(ctx context.Context) ([]OptionGroup, error) {
	var result optionGroupsResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"fields": "id,name,options[id]",
			"paging": "false",
		}).
		SetResult(&result).
		Get("/api/optionGroups")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch option groups: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch option groups: unexpected status %d", resp.StatusCode())
	}

	c.logger.Debug("fetched option groups", "count", len(result.OptionGroups))
	return result.OptionGroups, nil
}
