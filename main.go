package main

import (
	"time"

	"go.uber.org/zap"

	"snapserver/database" //PostgreSQLとRedisの初期化
	"snapserver/handlers" //各HTTPリクエストの処理
	"snapserver/rooms"    //ルームのライフサイクル管理
	"snapserver/roster"   //メンバー一覧の読み取り専用ビュー
	"snapserver/storage"  //署名付きアップロード資格情報の発行
	"snapserver/store"    //データストアへの型付きアクセス
	"snapserver/upload"   //メディア添付の2段階プロトコル
	"snapserver/utils"    //ロガーの初期化とCronジョブ(放置ルームの定期クリーンナップ)

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

func main() {
	var logger *zap.Logger
	var err error
	logger, err = utils.InitLogger() // ロガーの初期化
	if err != nil {
		panic(err) // 失敗した場合はプログラム停止
	}
	defer logger.Sync() // ロガーのクリーンアップ

	config, err := database.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("設定ファイルの読み込みに失敗しました", zap.Error(err))
	}

	// 非同期でPostgreSQLとRedisの初期化
	var db *gorm.DB
	var rdb *redis.Client
	done := make(chan bool)

	go func() {
		db, err = database.InitPostgreSQL(config, logger)
		if err != nil {
			logger.Fatal("PostgreSQLの初期化に失敗しました", zap.Error(err))
		}
		done <- true
	}()

	go func() {
		rdb, err = database.InitRedis(config, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		done <- true
	}()

	// 2つの初期化が完了するのを待つ
	<-done
	<-done

	if err := database.Migrate(db); err != nil {
		logger.Fatal("マイグレーションに失敗しました", zap.Error(err))
	}

	st := store.NewGormStore(db)

	backend, err := storage.NewSignedStorage(config.StorageBaseURL, []byte(config.StorageSecret))
	if err != nil {
		logger.Fatal("ストレージの初期化に失敗しました", zap.Error(err))
	}

	// クーロンスケジューラのセットアップと呼び出し
	go utils.CronCleaner(st, logger)

	env := &handlers.Env{
		Store:  st,
		RDB:    rdb,
		DB:     db,
		Rooms:  rooms.NewManager(st, logger),
		Roster: roster.NewService(st, logger),
		Upload: upload.NewProtocol(st, backend, logger),
		Logger: logger,
	}

	router := gin.Default()
	router.Use(gin.Recovery(), utils.RequestLogger(logger))

	//CORS（Cross-Origin Resource Sharing）ポリシーを設定
	router.Use(cors.New(cors.Config{
		AllowOrigins:     config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	//各HTTPリクエストのルーティング
	router.GET("/healthz", env.Health)
	router.GET("/me", env.Me)
	router.GET("/rooms/:code", env.RoomInfo)
	router.GET("/rooms/:code/players", env.ListPlayers)
	router.PUT("/rooms/:code/name", env.Rename)
	router.PUT("/rooms/:code/rounds", env.SetRounds)
	router.POST("/rooms/:code/start", env.StartRoom)
	router.POST("/rooms/:code/end", env.EndRoom)
	router.DELETE("/rooms/:code", env.CloseRoom)
	router.POST("/challenges/:id/media/reserve", env.ReserveUpload)
	router.POST("/challenges/:id/media/commit", env.CommitUpload)

	if err := router.Run(config.ListenAddr); err != nil {
		logger.Fatal("サーバーの起動に失敗しました", zap.Error(err))
	}
}
