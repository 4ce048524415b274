package main

import (
	"fmt"
	"os"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"go.uber.org/zap"

	"custody-core/internal/chain"
	"custody-core/internal/handler"
	"custody-core/internal/model"
	"custody-core/internal/server"
	"custody-core/internal/service"
	"custody-core/internal/service/mq"
	"custody-core/pkg/bip39"
	"custody-core/pkg/cache"
	"custody-core/pkg/config"
	"custody-core/pkg/database"
	"custody-core/pkg/hdwallet"
	"custody-core/pkg/keystore"
	"custody-core/pkg/logger"
	"custody-core/pkg/monitor"
	"custody-core/pkg/validator"
)

func main() {
	// 0. 配置与日志
	config.Init()
	validator.Init()
	logger.Init(config.Global.App.Env)
	defer logger.Sync()

	monitor.InitBusinessMetrics()

	// 1. 加载助记词
	// 优先 Keystore 文件 (scrypt + AES-GCM 加密)，明文配置仅限开发环境
	mnemonic := loadMnemonic()

	// 2. 基础设施连接
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=Asia/Shanghai",
		config.Global.DB.Host,
		config.Global.DB.User,
		config.Global.DB.Password,
		config.Global.DB.Name,
		config.Global.DB.Port,
	)
	db, err := database.ConnectPostgres(dsn)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	rdb, err := database.ConnectRedis(config.Global.Redis.Addr, config.Global.Redis.Password, config.Global.Redis.DB)
	if err != nil {
		logger.Fatal("Redis 连接失败", zap.Error(err))
	}

	if config.Global.App.Env != "production" {
		logger.Info("开发环境: 自动迁移 Schema (GORM AutoMigrate)")
		if err := db.AutoMigrate(model.AllModels()...); err != nil {
			logger.Fatal("AutoMigrate 失败", zap.Error(err))
		}
	} else {
		logger.Info("生产环境: 跳过 AutoMigrate，请使用 migrate 工具管理 Schema")
	}

	// 3. 密钥派生器
	// 种子只在首次派生时进内存，之后常驻；助记词本身不再传递
	deriver := hdwallet.NewDeriver(func() ([]byte, error) {
		return bip39.NewMnemonicService().MnemonicToSeed(mnemonic, ""), nil
	}, &chaincfg.MainNetParams)

	// 4. 链 Adapter 注册表
	adapters, err := chain.NewRegistry(&config.Global)
	if err != nil {
		logger.Fatal("初始化链 adapter 失败", zap.Error(err))
	}
	logger.Info("链 adapter 就绪", zap.Int("count", len(adapters)))

	// 5. 多级缓存 L1 内存 / L2 Redis
	localCache := cache.NewMemoryCache(1*time.Minute, 5*time.Minute)
	multiCache := cache.NewMultiLevelCache(localCache, cache.NewRedisCache(rdb))

	// 6. 业务服务
	ledger := service.NewLedgerService(db)
	wallets := service.NewWalletService(db, rdb, deriver, multiCache)
	withdraws := service.NewWithdrawService(db, ledger, &config.Global)
	depositMonitor := service.NewDepositMonitor(db, adapters, ledger, &config.Global)
	sweeper := service.NewSweeperService(db, adapters, deriver, &config.Global)
	broadcaster := service.NewBroadcasterService(db, adapters, deriver)

	// 7. 消息队列
	var producer mq.Producer
	if config.Global.Redis.MQType == "kafka" {
		logger.Info("事件投递使用 Kafka")
		producer = mq.NewKafkaProducer(config.Global.Kafka.Brokers)
	} else {
		logger.Info("事件投递使用 Redis Streams")
		producer = mq.NewRedisProducer(rdb)
	}
	relay := service.NewRelayService(db, producer)

	// 8. 定时任务: 入账发现 / 确认巡检 / 提现广播 / 资金归集
	cronService := service.NewCronService(rdb, depositMonitor, sweeper, broadcaster)
	cronService.Start()

	// 9. HTTP 服务
	r := server.NewHTTPRouter(server.Handlers{
		Wallet:   handler.NewWalletHandler(wallets, ledger),
		Withdraw: handler.NewWithdrawHandler(withdraws),
		Admin:    handler.NewAdminHandler(withdraws, sweeper),
	})

	app := server.New(server.Config{HttpPort: config.Global.App.HttpPort}, r)
	app.AddBackground(relay.Start)
	app.AddCleanup(cronService.Stop)
	app.AddCleanup(func() {
		_ = producer.Close()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		rdb.Close()
	})

	app.Run()
}

// loadMnemonic 按 Keystore -> 明文配置的顺序取助记词，都没有就拒绝启动。
// Deriver 本身支持种子延迟加载，但同一套种子服务所有链，
// 缺了它地址签发和签名广播全都不可用，这里选择启动即失败尽早暴露
func loadMnemonic() string {
	path := config.Global.Custody.KeystorePath
	if _, err := os.Stat(path); err == nil {
		password := config.Global.Custody.KeystorePassword
		if password == "" {
			logger.Fatal("加载 Keystore 失败: 未提供密码 (CUSTODY_KEYSTORE_PASSWORD)")
		}
		encrypted, err := keystore.LoadFromFile(path)
		if err != nil {
			logger.Fatal("读取 Keystore 文件失败", zap.Error(err))
		}
		mnemonic, err := keystore.DecryptMnemonic(encrypted, password)
		if err != nil {
			logger.Fatal("解密 Keystore 失败: 密码错误或文件损坏", zap.Error(err))
		}
		logger.Info("已从 Keystore 加载助记词", zap.String("path", path))
		return mnemonic
	}

	if config.Global.Custody.Mnemonic != "" {
		logger.Warn("未找到 Keystore 文件，使用配置中的明文助记词 (仅限开发环境)")
		return config.Global.Custody.Mnemonic
	}

	logger.Fatal("启动失败: 未找到 Keystore 文件，也未配置助记词。请先运行 'custody-cli init'")
	return ""
}
