package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración del terminal (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App    AppConfig
	DB     DBConfig
	HTTP   HTTPConfig
	NATS   NATSConfig
	Queue  QueueConfig
	Ledger LedgerConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env        string // development, staging, production
	Name       string
	LogLevel   string
	LocationID string // ubicación (local/almacén) que descuenta este terminal
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// HTTPConfig configuración de la API local del terminal.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig conexión al bus central; su estado es la señal de conectividad del terminal.
type NATSConfig struct {
	URL              string
	MovementsSubject string
}

// QueueConfig cola offline.
type QueueConfig struct {
	Dir           string
	OrderTimeout  time.Duration
	Parallelism   int
	RetryInterval time.Duration
}

// LedgerConfig precisión de escritura del libro de existencias.
type LedgerConfig struct {
	QuantityScale int32
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, QUEUE_DIR, NATS_URL, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:        getString(v, "APP_ENV", "development"),
			Name:       getString(v, "APP_NAME", "pos-inventario"),
			LogLevel:   getString(v, "LOG_LEVEL", "info"),
			LocationID: getString(v, "TERMINAL_LOCATION_ID", ""),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "pos_inventario"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "127.0.0.1"),
			Port: getInt(v, "HTTP_PORT", 8090),
		},
		NATS: NATSConfig{
			URL:              getString(v, "NATS_URL", "nats://127.0.0.1:4222"),
			MovementsSubject: getString(v, "NATS_MOVEMENTS_SUBJECT", "inventory.movements"),
		},
		Queue: QueueConfig{
			Dir:           getString(v, "QUEUE_DIR", "./data/queue"),
			OrderTimeout:  time.Duration(getInt(v, "QUEUE_ORDER_TIMEOUT_SECONDS", 15)) * time.Second,
			Parallelism:   getInt(v, "QUEUE_PARALLELISM", 1),
			RetryInterval: time.Duration(getInt(v, "QUEUE_RETRY_INTERVAL_SECONDS", 60)) * time.Second,
		},
		Ledger: LedgerConfig{
			QuantityScale: int32(getInt(v, "LEDGER_QUANTITY_SCALE", 6)),
		},
	}

	if cfg.App.LocationID == "" {
		return nil, fmt.Errorf("TERMINAL_LOCATION_ID es obligatorio")
	}
	if cfg.Queue.Parallelism < 1 {
		cfg.Queue.Parallelism = 1
	}
	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
