package models

// Config 構造体はサーバー起動に必要な設定情報を保持します。
type Config struct {
	ListenAddr string `json:"listen_addr"`

	DBHost     string `json:"db_host"`
	DBUser     string `json:"db_user"`
	DBPassword string `json:"db_password"`
	DBName     string `json:"db_name"`
	DBSSLMode  string `json:"db_sslmode"`

	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`

	StorageBaseURL string `json:"storage_base_url"`
	StorageSecret  string `json:"storage_secret"`

	AllowedOrigins []string `json:"allowed_origins"`
}
