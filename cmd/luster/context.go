package main

import (
	"strings"
	"sync"

	"luster/internal/config"
)

type commandContext struct {
	serverFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(serverFlag, configFlag *string) *commandContext {
	return &commandContext{
		serverFlag: serverFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// baseURL resolves the daemon API address: the --server flag wins, then the
// configured bind address.
func (c *commandContext) baseURL() string {
	if c.serverFlag != nil {
		if url := strings.TrimSpace(*c.serverFlag); url != "" {
			return strings.TrimRight(url, "/")
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil || cfg == nil {
		return ""
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return ""
	}
	return "http://" + bind
}

func (c *commandContext) client() (*apiClient, error) {
	base := c.baseURL()
	token := ""
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		token = strings.TrimSpace(cfg.Paths.APIToken)
	}
	return newAPIClient(base, token)
}
