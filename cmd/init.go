package main

import (
	"context"
	"os"
	"sync"
	"time"

	gosf "github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/header-mapper/internal/mapping"
	"github.com/sells-group/header-mapper/pkg/anthropic"
	"github.com/sells-group/header-mapper/pkg/salesforce"
)

// loadInstruction reads the mapping instruction once for the process. When
// Salesforce is enabled the Contact custom fields are appended; a failure to
// reach Salesforce is logged and the plain instruction is used.
func loadInstruction(ctx context.Context) (mapping.Instruction, error) {
	instr, err := mapping.LoadInstruction(cfg.Mapping.InstructionPath)
	if err != nil {
		return mapping.Instruction{}, err
	}
	if !cfg.Salesforce.Enabled {
		return instr, nil
	}

	sf, err := initSalesforce()
	if err == nil {
		var fields []string
		fields, err = salesforce.ContactCustomFields(ctx, sf)
		if err == nil {
			return instr.WithCustomFields(fields), nil
		}
	}
	zap.L().Warn("salesforce: custom fields unavailable, using base instruction", zap.Error(err))
	return instr, nil
}

func initSalesforce() (salesforce.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (MAPPER_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := gosf.Init(gosf.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return salesforce.NewClient(sf, salesforce.WithRateLimit(cfg.Salesforce.RateLimit)), nil
}

// clientCache reuses one SDK client per credential.
type clientCache struct {
	mu      sync.Mutex
	baseURL string
	clients map[string]anthropic.Client
}

func (c *clientCache) get(apiKey string) anthropic.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cl, ok := c.clients[apiKey]; ok {
		return cl
	}
	if c.clients == nil {
		c.clients = make(map[string]anthropic.Client)
	}
	cl := anthropic.NewClient(apiKey, anthropic.WithBaseURL(c.baseURL))
	c.clients[apiKey] = cl
	return cl
}

func newMapper(instr mapping.Instruction, observer mapping.Observer) *mapping.Mapper {
	builder := mapping.NewRequestBuilder(instr, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)
	cache := &clientCache{baseURL: cfg.Anthropic.BaseURL}

	opts := []mapping.Option{
		mapping.WithTimeout(time.Duration(cfg.Anthropic.TimeoutSecs) * time.Second),
		mapping.WithRateLimit(cfg.Anthropic.RateLimit, cfg.Anthropic.RateBurst),
	}
	if observer != nil {
		opts = append(opts, mapping.WithObserver(observer))
	}
	return mapping.NewMapper(builder, cache.get, cfg.Anthropic.KeySource(), opts...)
}
