// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// 全局配置变量，仅由 main 使用；其余组件通过构造函数接收各自的配置段。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Tika          TikaConfig          `mapstructure:"tika"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Upload        UploadConfig        `mapstructure:"upload"`
	Analysis      AnalysisConfig      `mapstructure:"analysis"`
	QA            QAConfig            `mapstructure:"qa"`
	Knowledge     KnowledgeConfig     `mapstructure:"knowledge"`
	Report        ReportConfig        `mapstructure:"report"`
	Watch         WatchConfig         `mapstructure:"watch"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
	Workers int    `mapstructure:"workers"`
}

// TikaConfig 存储 Tika 服务器相关的配置。
type TikaConfig struct {
	ServerURL      string `mapstructure:"server_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey      string           `mapstructure:"api_key"`
	BaseURL     string           `mapstructure:"base_url"`
	Model       string           `mapstructure:"model"`
	Analysis    GenerationConfig `mapstructure:"analysis"`
	QA          GenerationConfig `mapstructure:"qa"`
	Translation GenerationConfig `mapstructure:"translation"`
}

// GenerationConfig 是单类调用的生成参数。
type GenerationConfig struct {
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// UploadConfig 存储上传限制。
type UploadConfig struct {
	MaxSizeMB int64 `mapstructure:"max_size_mb"`
}

// MaxBytes 返回以字节计的上传上限。
func (u UploadConfig) MaxBytes() int64 {
	return u.MaxSizeMB * 1024 * 1024
}

// AnalysisConfig 控制合规分析的输入裁剪。
type AnalysisConfig struct {
	MaxChars     int `mapstructure:"max_chars"`
	KBQueryChars int `mapstructure:"kb_query_chars"`
	KBTopK       int `mapstructure:"kb_top_k"`
}

// QAConfig 控制问答的上下文大小。
type QAConfig struct {
	ContextChars int `mapstructure:"context_chars"`
	KBTopK       int `mapstructure:"kb_top_k"`
}

// KnowledgeConfig 控制知识库导入。
type KnowledgeConfig struct {
	SeedDir      string `mapstructure:"seed_dir"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
}

// ReportConfig 控制 PDF 报告链接。
type ReportConfig struct {
	URLExpiryMinutes int `mapstructure:"url_expiry_minutes"`
}

// WatchConfig 控制 websocket 状态推送。
type WatchConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.topic", "document-jobs")
	v.SetDefault("kafka.group_id", "indialaw-go-pipeline")
	v.SetDefault("kafka.workers", 1)
	v.SetDefault("tika.timeout_seconds", 120)
	v.SetDefault("elasticsearch.index_name", "legal_knowledge")
	v.SetDefault("embedding.dimensions", 768)
	v.SetDefault("llm.analysis.temperature", 0.1)
	v.SetDefault("llm.analysis.max_tokens", 8192)
	v.SetDefault("llm.qa.temperature", 0.3)
	v.SetDefault("llm.qa.max_tokens", 2048)
	v.SetDefault("llm.translation.temperature", 0.0)
	v.SetDefault("llm.translation.max_tokens", 4096)
	v.SetDefault("upload.max_size_mb", 15)
	v.SetDefault("analysis.max_chars", 100000)
	v.SetDefault("analysis.kb_query_chars", 1000)
	v.SetDefault("analysis.kb_top_k", 5)
	v.SetDefault("qa.context_chars", 10000)
	v.SetDefault("qa.kb_top_k", 5)
	v.SetDefault("knowledge.seed_dir", "knowledge")
	v.SetDefault("knowledge.chunk_size", 1000)
	v.SetDefault("knowledge.chunk_overlap", 100)
	v.SetDefault("report.url_expiry_minutes", 60)
	v.SetDefault("watch.interval_seconds", 2)
}

// Load 从指定路径读取 YAML 配置，环境变量 INDIALAW_<SECTION>_<KEY> 可覆盖任意配置项。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("INDIALAW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return &cfg, nil
}

// Init 初始化配置加载，失败时直接 panic。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = *cfg
}
