package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sanix-darker/streamkernel/internal/adapter"
	"github.com/sanix-darker/streamkernel/internal/adapter/anthropicadapter"
	"github.com/sanix-darker/streamkernel/internal/adapter/openaiadapter"
	"github.com/sanix-darker/streamkernel/internal/config"
	"github.com/sanix-darker/streamkernel/internal/orchestrator"
	"github.com/sanix-darker/streamkernel/internal/producer"
	"github.com/sanix-darker/streamkernel/internal/producer/httpsse"
	"github.com/sanix-darker/streamkernel/internal/telemetry"
)

// sessionFlags holds the subset of flags common to every command that
// starts at least one orchestrator session (run, consensus, structured).
type sessionFlags struct {
	provider string
	model    string
	apiKey   string
	baseURL  string
	maxToken int
}

func addSessionFlags(cmd *cobra.Command, f *sessionFlags) {
	cmd.Flags().StringVar(&f.provider, "provider", "openai", "provider to stream from: openai or anthropic")
	cmd.Flags().StringVar(&f.model, "model", "", "model name (defaults to the provider's default)")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "API key (defaults to OPENAI_API_KEY/ANTHROPIC_API_KEY)")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "override the provider's base URL")
	cmd.Flags().IntVar(&f.maxToken, "max-tokens", 1024, "max tokens requested from the provider")
}

// buildStreamFactory turns sessionFlags + a prompt into a producer.Factory
// over the live HTTP/SSE endpoint for the selected provider, registering
// the matching adapter in a fresh registry so resolution succeeds without
// touching the process-wide default.
func buildStreamFactory(f sessionFlags, prompt string) (producer.Factory, *adapter.Registry, error) {
	reg := adapter.NewRegistry()

	switch f.provider {
	case "anthropic", "claude":
		_ = reg.Register(anthropicadapter.New())
		apiKey := f.apiKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		opts := anthropicadapter.BuildOptions(anthropicadapter.RequestOptions{
			APIKey:    apiKey,
			BaseURL:   f.baseURL,
			Model:     f.model,
			Messages:  []anthropicadapter.Message{{Role: "user", Content: prompt}},
			MaxTokens: f.maxToken,
		})
		return httpSSEFactory(opts), reg, nil

	case "openai", "":
		_ = reg.Register(openaiadapter.New())
		apiKey := f.apiKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		opts := openaiadapter.BuildOptions(openaiadapter.RequestOptions{
			APIKey:    apiKey,
			BaseURL:   f.baseURL,
			Model:     f.model,
			Messages:  []openaiadapter.Message{{Role: "user", Content: prompt}},
			MaxTokens: f.maxToken,
		})
		return httpSSEFactory(opts), reg, nil

	default:
		return nil, nil, fmt.Errorf("unknown provider %q (want openai or anthropic)", f.provider)
	}
}

func httpSSEFactory(opts httpsse.Options) producer.Factory {
	return func() producer.Producer {
		return httpsse.New(opts)
	}
}

// buildSessionOptions assembles an orchestrator.Options from the
// process-wide config defaults, a resolved stream factory, and an adapter
// registry. The
// aggregator is wired in as the session's sole Sink so every command
// driving a session reports into the same live counter set.
func buildSessionOptions(conf config.Config, stream producer.Factory, reg *adapter.Registry, agg *telemetry.Aggregator) orchestrator.Options {
	return orchestrator.Options{
		Stream:           stream,
		Registry:         reg,
		Adapter:          conf.DefaultAdapter,
		Retry:            conf.DefaultRetry,
		Timeout:          conf.DefaultTimeout,
		Checkpoints:      conf.DefaultCheckpoints,
		Monitoring:       conf.DefaultMonitoring,
		DetectZeroTokens: true,
		Interceptors:     []orchestrator.Sink{agg},
	}
}
