package config

import (
	"log"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig                `mapstructure:"app"`
	DB       DBConfig                 `mapstructure:"db"`
	Redis    RedisConfig              `mapstructure:"redis"`
	Kafka    KafkaConfig              `mapstructure:"kafka"`
	Custody  CustodyConfig            `mapstructure:"custody"`
	Networks map[string]NetworkConfig `mapstructure:"networks"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	MQType   string `mapstructure:"mq_type"` // "redis" or "kafka"
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

// CustodyConfig 全局资金策略
type CustodyConfig struct {
	// 助记词 (未配置 keystore 时直接使用; 二选一)
	Mnemonic string `mapstructure:"mnemonic"`
	// 加密的 Keystore 文件路径; 密码通过环境变量 CUSTODY_KEYSTORE_PASSWORD 传入
	KeystorePath     string `mapstructure:"keystore_path"`
	KeystorePassword string `mapstructure:"keystore_password"`

	PerTransactionLimit decimal.Decimal `mapstructure:"per_transaction_limit"`
	DailyTotalLimit     decimal.Decimal `mapstructure:"daily_total_limit"`
	AutoApproveLimit    decimal.Decimal `mapstructure:"auto_approve_limit"`
}

// NetworkConfig 每条链的配置
// 注意: 同一部署内必须统一主网/测试网，不要混配 (派生前缀和 Explorer 端点要一致)
type NetworkConfig struct {
	RpcURL                string          `mapstructure:"rpc_url"`
	ExplorerURL           string          `mapstructure:"explorer_url"` // BTC Esplora / Tron 网关
	UsdtContract          string          `mapstructure:"usdt_contract"`
	TokenDecimals         int32           `mapstructure:"token_decimals"`
	MinDeposit            decimal.Decimal `mapstructure:"min_deposit"`
	RequiredConfirmations uint64          `mapstructure:"required_confirmations"`
	WithdrawalFee         decimal.Decimal `mapstructure:"withdrawal_fee"`
	HotWallet             string          `mapstructure:"hot_wallet"`
	ChainID               int64           `mapstructure:"chain_id"` // EVM 链
}

var Global Config

func Init() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// 环境变量设置
	viper.SetEnvPrefix("custody")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: Config file not found, using defaults and environment variables")
		} else {
			log.Fatalf("Fatal error config file: %s \n", err)
		}
	}

	if err := viper.Unmarshal(&Global); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.http_port", "8080")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.user", "custody_user")
	viper.SetDefault("db.password", "custody_password")
	viper.SetDefault("db.name", "custody_db")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.mq_type", "redis")

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})

	viper.SetDefault("custody.per_transaction_limit", "5000")
	viper.SetDefault("custody.daily_total_limit", "10000")
	viper.SetDefault("custody.auto_approve_limit", "100")

	// 各链默认入账门槛/确认数 (主网档位)
	viper.SetDefault("networks.tron.min_deposit", "1")
	viper.SetDefault("networks.tron.required_confirmations", 20)
	viper.SetDefault("networks.tron.withdrawal_fee", "1")
	viper.SetDefault("networks.tron.token_decimals", 6)
	viper.SetDefault("networks.ethereum.min_deposit", "1")
	viper.SetDefault("networks.ethereum.required_confirmations", 12)
	viper.SetDefault("networks.ethereum.withdrawal_fee", "5")
	viper.SetDefault("networks.ethereum.token_decimals", 6)
	viper.SetDefault("networks.bsc.min_deposit", "1")
	viper.SetDefault("networks.bsc.required_confirmations", 15)
	viper.SetDefault("networks.bsc.withdrawal_fee", "1")
	viper.SetDefault("networks.bsc.token_decimals", 18)
	viper.SetDefault("networks.polygon.min_deposit", "1")
	viper.SetDefault("networks.polygon.required_confirmations", 30)
	viper.SetDefault("networks.polygon.withdrawal_fee", "1")
	viper.SetDefault("networks.polygon.token_decimals", 6)
	viper.SetDefault("networks.solana.min_deposit", "1")
	viper.SetDefault("networks.solana.required_confirmations", 32)
	viper.SetDefault("networks.solana.withdrawal_fee", "1")
	viper.SetDefault("networks.solana.token_decimals", 6)
	viper.SetDefault("networks.bitcoin.min_deposit", "0.0001")
	viper.SetDefault("networks.bitcoin.required_confirmations", 2)
	viper.SetDefault("networks.bitcoin.withdrawal_fee", "0.0002")
	viper.SetDefault("networks.bitcoin.token_decimals", 8)
}
