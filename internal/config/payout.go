package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PayoutConfig controls how sale proceeds are split with educators.
type PayoutConfig struct {
	// DefaultFeePercent is the platform fee (0-100) applied when a product
	// carries no override.
	DefaultFeePercent int64 `mapstructure:"defaultFeePercent"`
	// MinTransferAmount is the smallest payee share (minor units) worth
	// sending to the gateway as a transfer.
	MinTransferAmount int64 `mapstructure:"minTransferAmount"`
}

func DefaultPayoutConfig() PayoutConfig {
	return PayoutConfig{
		DefaultFeePercent: 15,
		MinTransferAmount: 100,
	}
}

type PayoutConfigHolder struct {
	current atomic.Value // holds PayoutConfig
}

func NewPayoutConfigHolder() (*PayoutConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("payout")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/skillhut/config")
	v.AddConfigPath("/etc/skillhut")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SKILLHUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// if config file not found, use defaults
		defaults := DefaultPayoutConfig()
		v.SetDefault("payout.defaultFeePercent", defaults.DefaultFeePercent)
		v.SetDefault("payout.minTransferAmount", defaults.MinTransferAmount)
	}

	var cfg PayoutConfig
	if err := v.UnmarshalKey("payout", &cfg); err != nil {
		return nil, err
	}
	if err := validatePayoutConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PayoutConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PayoutConfig
		if err := v.UnmarshalKey("payout", &updated); err != nil {
			log.Printf("[payout-config] reload failed: %v", err)
			return
		}
		if err := validatePayoutConfig(updated); err != nil {
			log.Printf("[payout-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[payout-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPayoutConfigHolder returns a holder pinned to cfg; used in tests.
func NewStaticPayoutConfigHolder(cfg PayoutConfig) *PayoutConfigHolder {
	holder := &PayoutConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *PayoutConfigHolder) Get() PayoutConfig {
	return h.current.Load().(PayoutConfig)
}

func validatePayoutConfig(cfg PayoutConfig) error {
	if cfg.DefaultFeePercent < 0 || cfg.DefaultFeePercent > 100 {
		return errors.New("payout.defaultFeePercent must be within 0-100")
	}
	if cfg.MinTransferAmount < 0 {
		return errors.New("payout.minTransferAmount cannot be negative")
	}
	return nil
}
