package main

import (
	"time"

	"github.com/spf13/viper"

	"github.com/dgnsrekt/stillness/internal/session"
	"github.com/dgnsrekt/stillness/internal/synth"
	"github.com/dgnsrekt/stillness/internal/synth/mock"
)

// buildGateway constructs the speech gateway collaborator. A dry run gets
// an in-memory gateway so scripts can be rehearsed without a network or
// an API key.
func buildGateway() (session.Gateway, error) {
	if dryRun {
		g := mock.New()
		g.SetDelay(150 * time.Millisecond)
		return g, nil
	}

	timeout := viper.GetDuration("gateway.timeout")
	if timeout <= 0 {
		timeout = synth.DefaultClientConfig().Timeout
	}
	return synth.NewClient(synth.ClientConfig{
		BaseURL: gatewayURL,
		APIKey:  apiKey,
		Timeout: timeout,
	})
}
