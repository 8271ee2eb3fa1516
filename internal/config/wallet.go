package config

import (
	"time"

	"github.com/spf13/viper"
)

// Wager requirement policies applied when a deposit is approved.
const (
	WagerPolicyAdditive = "additive" // requirement += amount * multiplier
	WagerPolicyMax      = "max"      // requirement = max(requirement, amount * multiplier)
)

type WalletConfig struct {
	MinWithdrawal   int64 // paise
	MaxWithdrawal   int64 // paise
	MaxDeposit      int64 // paise
	WagerMultiplier float64
	WagerPolicy     string
	LockTimeout     time.Duration
	StatsCacheTTL   time.Duration
	SettlementQueue string
	// SettlementMaxRetries bounds redeliveries of a failing settlement before
	// it is parked on the dead-letter list.
	SettlementMaxRetries int
}

// LoadWalletConfig returns wallet configuration with defaults. Amount bounds
// are configured in rupees and stored in paise.
func LoadWalletConfig() *WalletConfig {
	viper.SetDefault("wallet.min_withdrawal", 100)
	viper.SetDefault("wallet.max_withdrawal", 50000)
	viper.SetDefault("wallet.max_deposit", 100000)
	viper.SetDefault("wallet.wager_multiplier", 2.0)
	viper.SetDefault("wallet.wager_policy", WagerPolicyAdditive)
	viper.SetDefault("wallet.lock_timeout", 3*time.Second)
	viper.SetDefault("wallet.stats_cache_ttl", 30*time.Second)
	viper.SetDefault("wallet.settlement_queue", "wager_settlements")
	viper.SetDefault("wallet.settlement_max_retries", 5)

	cfg := &WalletConfig{
		MinWithdrawal:        viper.GetInt64("wallet.min_withdrawal") * 100,
		MaxWithdrawal:        viper.GetInt64("wallet.max_withdrawal") * 100,
		MaxDeposit:           viper.GetInt64("wallet.max_deposit") * 100,
		WagerMultiplier:      viper.GetFloat64("wallet.wager_multiplier"),
		WagerPolicy:          viper.GetString("wallet.wager_policy"),
		LockTimeout:          viper.GetDuration("wallet.lock_timeout"),
		StatsCacheTTL:        viper.GetDuration("wallet.stats_cache_ttl"),
		SettlementQueue:      viper.GetString("wallet.settlement_queue"),
		SettlementMaxRetries: viper.GetInt("wallet.settlement_max_retries"),
	}

	if cfg.WagerPolicy != WagerPolicyAdditive && cfg.WagerPolicy != WagerPolicyMax {
		cfg.WagerPolicy = WagerPolicyAdditive
	}
	if cfg.SettlementMaxRetries < 1 {
		cfg.SettlementMaxRetries = 1
	}

	return cfg
}
