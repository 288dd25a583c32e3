// Package config carga y persiste la configuración YAML del asistente,
// con creación de un archivo default en el primer arranque y overrides por
// variables de entorno para los secretos.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// GoogleConfig son las credenciales OAuth del proveedor Google Calendar.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	TokenFile    string `yaml:"token_file"`
	CalendarID   string `yaml:"calendar_id"`
}

// CalDAVConfig son las credenciales de un servidor CalDAV.
type CalDAVConfig struct {
	Endpoint string `yaml:"endpoint"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Calendar string `yaml:"calendar"`
}

// ProviderConfig elige y configura el proveedor de calendario remoto.
// Type: "google", "caldav" o "none" (modo solo-local).
type ProviderConfig struct {
	Type   string       `yaml:"type"`
	Google GoogleConfig `yaml:"google"`
	CalDAV CalDAVConfig `yaml:"caldav"`
}

// StorageConfig elige el backend del store local.
// Driver: "sqlite" (default), "postgres" o "memory".
type StorageConfig struct {
	Driver string `yaml:"driver"`
	// Path es el archivo de la base para sqlite.
	Path string `yaml:"path"`
	// DSN es la cadena de conexión para postgres.
	DSN string `yaml:"dsn"`
}

// InferenceConfig configura el parser contra el modelo hosteado. Sin token,
// el asistente usa solo el parser de reglas.
type InferenceConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
	Model string `yaml:"model"`
}

// Config es la configuración completa de la aplicación.
type Config struct {
	// Listen es la dirección HTTP del API.
	Listen string `yaml:"listen"`

	// Timezone es la zona IANA por defecto para interpretar pedidos que no
	// traen una. Vacía => detección por IP y fallback UTC.
	Timezone string `yaml:"timezone"`

	// GapMinutes es el buffer de cortesía entre eventos al chequear
	// conflictos.
	GapMinutes int `yaml:"gap_minutes"`

	// SyncDaysAhead es la ventana hacia adelante que se pide al proveedor
	// en cada sincronización.
	SyncDaysAhead int `yaml:"sync_days_ahead"`

	// SyncCron agenda la sincronización en background (formato cron de 5
	// campos). Vacío => sin sync automático.
	SyncCron string `yaml:"sync_cron"`

	Storage   StorageConfig   `yaml:"storage"`
	Provider  ProviderConfig  `yaml:"provider"`
	Inference InferenceConfig `yaml:"inference"`
}

func DefaultConfig() *Config {
	return &Config{
		Listen:        "127.0.0.1:8080",
		Timezone:      "",
		GapMinutes:    15,
		SyncDaysAhead: 30,
		SyncCron:      "",
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "calendar.db",
		},
		Provider: ProviderConfig{
			Type: "none",
		},
	}
}

// Normalize completa valores faltantes para que configs parciales (o de
// versiones viejas) sigan funcionando.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.GapMinutes <= 0 {
		c.GapMinutes = 15
	}
	if c.SyncDaysAhead <= 0 {
		c.SyncDaysAhead = 30
	}
	switch c.Storage.Driver {
	case "sqlite", "postgres", "memory":
	default:
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Driver == "sqlite" && c.Storage.Path == "" {
		c.Storage.Path = "calendar.db"
	}
	switch c.Provider.Type {
	case "google", "caldav", "none":
	default:
		c.Provider.Type = "none"
	}
	if c.Provider.Google.TokenFile == "" {
		c.Provider.Google.TokenFile = "token.json"
	}
	if c.Provider.Google.CalendarID == "" {
		c.Provider.Google.CalendarID = "primary"
	}
}

// ApplyEnv pisa los campos sensibles (y los más comunes en despliegues) con
// variables de entorno, si están presentes. Los secretos suelen venir por
// env antes que por YAML.
func (c *Config) ApplyEnv() {
	setIfPresent := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setIfPresent("LISTEN_ADDR", &c.Listen)
	setIfPresent("TIMEZONE", &c.Timezone)
	setIfPresent("STORAGE_DRIVER", &c.Storage.Driver)
	setIfPresent("STORAGE_PATH", &c.Storage.Path)
	setIfPresent("STORAGE_DSN", &c.Storage.DSN)
	setIfPresent("PROVIDER_TYPE", &c.Provider.Type)
	setIfPresent("GOOGLE_CLIENT_ID", &c.Provider.Google.ClientID)
	setIfPresent("GOOGLE_CLIENT_SECRET", &c.Provider.Google.ClientSecret)
	setIfPresent("CALDAV_ENDPOINT", &c.Provider.CalDAV.Endpoint)
	setIfPresent("CALDAV_USERNAME", &c.Provider.CalDAV.Username)
	setIfPresent("CALDAV_PASSWORD", &c.Provider.CalDAV.Password)
	setIfPresent("INFERENCE_URL", &c.Inference.URL)
	setIfPresent("INFERENCE_TOKEN", &c.Inference.Token)
	setIfPresent("INFERENCE_MODEL", &c.Inference.Model)

	if v, ok := os.LookupEnv("GAP_MINUTES"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.GapMinutes = n
		}
	}
	if v, ok := os.LookupEnv("SYNC_DAYS_AHEAD"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.SyncDaysAhead = n
		}
	}
}

// Load carga la configuración desde path.
//
// Si el archivo no existe: crea el directorio padre si hace falta, escribe
// un config default con permisos 0600 y lo devuelve. Si existe: lee el YAML
// y normaliza defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save persiste la configuración en path con escritura atómica
// (temp + rename) y permisos 0600: el archivo puede llevar credenciales.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
