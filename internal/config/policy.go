package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// PlacementPolicy throttles order placement per customer.
type PlacementPolicy struct {
	Enabled        bool    `mapstructure:"enabled"`
	RatePerSecond  float64 `mapstructure:"ratePerSecond"`
	Burst          int     `mapstructure:"burst"`
	LockTTLSeconds int     `mapstructure:"lockTTLSeconds"`
}

type OrderingPolicy struct {
	Placement PlacementPolicy `mapstructure:"placement"`
}

func DefaultOrderingPolicy() OrderingPolicy {
	return OrderingPolicy{
		Placement: PlacementPolicy{
			Enabled:        true,
			RatePerSecond:  1,
			Burst:          5,
			LockTTLSeconds: 5,
		},
	}
}

type PolicyHolder struct {
	current atomic.Value // holds OrderingPolicy
}

// NewStaticPolicyHolder returns a holder that never reloads.
func NewStaticPolicyHolder(policy OrderingPolicy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewPolicyHolder(log *zap.Logger) (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("ordering")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/tiffin")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TIFFIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultOrderingPolicy()
	v.SetDefault("ordering.placement.enabled", defaults.Placement.Enabled)
	v.SetDefault("ordering.placement.ratePerSecond", defaults.Placement.RatePerSecond)
	v.SetDefault("ordering.placement.burst", defaults.Placement.Burst)
	v.SetDefault("ordering.placement.lockTTLSeconds", defaults.Placement.LockTTLSeconds)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	var policy OrderingPolicy
	if err := v.UnmarshalKey("ordering", &policy); err != nil {
		return nil, err
	}
	if err := validateOrderingPolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticPolicyHolder(policy)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated OrderingPolicy
		if err := v.UnmarshalKey("ordering", &updated); err != nil {
			log.Warn("ordering policy reload failed", zap.Error(err))
			return
		}
		if err := validateOrderingPolicy(updated); err != nil {
			log.Warn("invalid ordering policy ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("ordering policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *PolicyHolder) Get() OrderingPolicy {
	return h.current.Load().(OrderingPolicy)
}

func validateOrderingPolicy(policy OrderingPolicy) error {
	p := policy.Placement
	if !p.Enabled {
		return nil
	}
	if p.RatePerSecond <= 0 {
		return errors.New("ordering.placement.ratePerSecond must be positive")
	}
	if p.Burst <= 0 {
		return errors.New("ordering.placement.burst must be positive")
	}
	if p.LockTTLSeconds <= 0 {
		return errors.New("ordering.placement.lockTTLSeconds must be positive")
	}
	return nil
}
