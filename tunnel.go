package main

import (
	"context"
	"net"

	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/cattower/game/config"
)

// tunnel is a public listener with a URL
type tunnel interface {
	net.Listener
	URL() string
}

// tunnelOpener opens the public endpoint described by cfg
type tunnelOpener func(ctx context.Context, cfg config.Tunnel) (tunnel, error)

// openNgrok starts an ngrok HTTP endpoint, on cfg.Domain when set
func openNgrok(ctx context.Context, cfg config.Tunnel) (tunnel, error) {
	var endpoint ngrokConfig.Tunnel
	if cfg.Domain != "" {
		endpoint = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
	} else {
		endpoint = ngrokConfig.HTTPEndpoint()
	}
	return ngrok.Listen(ctx, endpoint, ngrok.WithAuthtoken(cfg.AuthToken))
}
