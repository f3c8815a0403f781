package notification

import (
	"context"
	"io"
	"log"
	"regexp"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/turtleson01/bird-app/internal/errors"
)

// service URLs carry tokens in the userinfo, host and query
var serviceURLPattern = regexp.MustCompile(`\b([a-z][a-z0-9+.\-]*)://\S+`)

func scrubURLs(msg string) string {
	return serviceURLPattern.ReplaceAllString(msg, "$1://********")
}

// ShoutrrrPusher sends through a single shoutrrr router for all URLs.
type ShoutrrrPusher struct {
	urls   []string
	sender *router.ServiceRouter
}

// NewShoutrrrPusher validates urls and builds the sender
func NewShoutrrrPusher(urls []string, timeout time.Duration) (*ShoutrrrPusher, error) {
	if len(urls) == 0 {
		return nil, errors.Newf("at least one notification URL is required").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}
	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, errors.Newf("invalid notification URL: %s", scrubURLs(err.Error())).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	return &ShoutrrrPusher{urls: slices.Clone(urls), sender: sender}, nil
}

// Push sends message to every service. The router applies its own timeout.
func (p *ShoutrrrPusher) Push(ctx context.Context, title, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := stypes.Params{}
	if title != "" {
		params.SetTitle(title)
	}
	var failed []error
	for _, err := range p.sender.Send(message, &params) {
		if err != nil {
			failed = append(failed, errors.NewStd(scrubURLs(err.Error())))
		}
	}
	if len(failed) > 0 {
		return errors.New(errors.Join(failed...)).
			Component("notification").
			Category(errors.CategoryNetwork).
			Context("services", len(p.urls)).
			Build()
	}
	return nil
}
