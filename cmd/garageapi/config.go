package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/outjet/garage-api/internal/gpio"
	"github.com/outjet/garage-api/internal/logger"
	"github.com/outjet/garage-api/internal/mqtt"
	"github.com/outjet/garage-api/internal/service/auth"
)

const (
	defaultListenAddr    = ":8443"
	defaultLoggingLevel  = logger.LevelInfo
	defaultLogFormat     = logger.FormatText
	defaultPulseDuration = 500 * time.Millisecond
	defaultGPIODriver    = gpio.DriverCdev
	defaultGPIOChip      = "gpiochip0"
	defaultClientID      = "garage-api"
	defaultTopicPrefix   = "garage"

	// BCM offsets of the reference wiring
	defaultDownSensorPin = 20
	defaultUpSensorPin   = 21
	defaultDoorRelayPin  = 16
	defaultBuzzerPin     = 19
)

type Config struct {
	// Address on which the api will be run
	ListenAddr string `yaml:"listen_addr" validate:"required"`

	// Default logging level and output format
	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`

	// Secret key to sign access tokens with
	SecretKey string `yaml:"secret_key" validate:"required"`

	// The single operator account.
	// Plain password is hashed at start if no hash given.
	Username     string `yaml:"username" validate:"required"`
	PasswordHash string `yaml:"password_hash" validate:"required_without=Password"`
	Password     string `yaml:"password" validate:"required_without=PasswordHash"`

	// Database to store door events in
	// Event log is disabled if empty
	DatabaseDSN string `yaml:"database_uri"`

	// Relay pulse length
	PulseDuration time.Duration `yaml:"pulse_duration" validate:"gt=0,lte=10s"`

	GPIO gpio.Config `yaml:"gpio"`

	// MQTT is disabled if broker is empty
	MQTT mqtt.Config `yaml:"mqtt"`
}

func NewConfig() *Config {
	return &Config{
		ListenAddr:    defaultListenAddr,
		LogLevel:      defaultLoggingLevel,
		LogFormat:     defaultLogFormat,
		PulseDuration: defaultPulseDuration,
		GPIO: gpio.Config{
			Driver:        defaultGPIODriver,
			Chip:          defaultGPIOChip,
			DownSensorPin: defaultDownSensorPin,
			UpSensorPin:   defaultUpSensorPin,
			DoorRelayPin:  defaultDoorRelayPin,
			BuzzerPin:     defaultBuzzerPin,
		},
		MQTT: mqtt.Config{
			ClientID:    defaultClientID,
			TopicPrefix: defaultTopicPrefix,
		},
	}
}

// Config file path from --config flag or CONFIG_FILE env, flag wins
func ConfigPath(args []string, getenv func(string) string) (string, error) {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}

	path := fs.StringP("config", "c", getenv("CONFIG_FILE"), "")
	if err := fs.Parse(args); err != nil && !errors.Is(err, pflag.ErrHelp) {
		return "", err
	}

	return *path, nil
}

// Load options from yaml file. Keys absent from file keep current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error while reading config file. Err: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("error while parsing config file %s. Err: %w", path, err)
	}

	return nil
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = n
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}

	// Bare port is overridden by full address
	if port := getenv("PORT"); port != "" {
		c.ListenAddr = ":" + port
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":        setString(&c.ListenAddr),
		"SECRET_KEY":         setString(&c.SecretKey),
		"USER_NAME":          setString(&c.Username),
		"USER_PASSWORD_HASH": setString(&c.PasswordHash),
		"USER_PASSWORD":      setString(&c.Password),
		"LOG_LEVEL":          setString(&c.LogLevel),
		"LOG_FORMAT":         setString(&c.LogFormat),
		"DATABASE_URI":       setString(&c.DatabaseDSN),
		"PULSE_DURATION":     setDuration(&c.PulseDuration),
		"GPIO_DRIVER":        setString(&c.GPIO.Driver),
		"GPIO_CHIP":          setString(&c.GPIO.Chip),
		"PIN_DOWN_SENSOR":    setInt(&c.GPIO.DownSensorPin),
		"PIN_UP_SENSOR":      setInt(&c.GPIO.UpSensorPin),
		"PIN_DOOR_CONTROL":   setInt(&c.GPIO.DoorRelayPin),
		"PIN_BUZZER":         setInt(&c.GPIO.BuzzerPin),
		"MQTT_BROKER":        setString(&c.MQTT.Broker),
		"MQTT_CLIENT_ID":     setString(&c.MQTT.ClientID),
		"MQTT_USERNAME":      setString(&c.MQTT.Username),
		"MQTT_PASSWORD":      setString(&c.MQTT.Password),
		"MQTT_TOPIC_PREFIX":  setString(&c.MQTT.TopicPrefix),
	}

	var errs []error
	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s. Err: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("garageapi", pflag.ContinueOnError)

	fs.StringP("config", "c", "", "Path to yaml config file")
	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.Username, "username", "u", c.Username, "Operator username")
	fs.StringVar(&c.PasswordHash, "password-hash", c.PasswordHash, "Operator password hash (bcrypt or argon2id)")
	fs.StringVar(&c.Password, "password", c.Password, "Operator password, hashed at start")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Logging format (text, json)")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.DurationVar(&c.PulseDuration, "pulse", c.PulseDuration, "Relay pulse duration")

	fs.StringVar(&c.GPIO.Driver, "gpio-driver", c.GPIO.Driver, "GPIO driver (cdev, mem, fake)")
	fs.StringVar(&c.GPIO.Chip, "gpio-chip", c.GPIO.Chip, "GPIO chip for cdev driver")
	fs.IntVar(&c.GPIO.DownSensorPin, "pin-down-sensor", c.GPIO.DownSensorPin, "Door down sensor line")
	fs.IntVar(&c.GPIO.UpSensorPin, "pin-up-sensor", c.GPIO.UpSensorPin, "Door up sensor line")
	fs.IntVar(&c.GPIO.DoorRelayPin, "pin-door-control", c.GPIO.DoorRelayPin, "Door relay line")
	fs.IntVar(&c.GPIO.BuzzerPin, "pin-buzzer", c.GPIO.BuzzerPin, "Buzzer line")

	fs.StringVar(&c.MQTT.Broker, "mqtt-broker", c.MQTT.Broker, "MQTT broker url")
	fs.StringVar(&c.MQTT.ClientID, "mqtt-client-id", c.MQTT.ClientID, "MQTT client id")
	fs.StringVar(&c.MQTT.Username, "mqtt-username", c.MQTT.Username, "MQTT username")
	fs.StringVar(&c.MQTT.Password, "mqtt-password", c.MQTT.Password, "MQTT password")
	fs.StringVar(&c.MQTT.TopicPrefix, "mqtt-topic-prefix", c.MQTT.TopicPrefix, "MQTT topic prefix")

	return fs.Parse(args)
}

func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config. Err: %w", err)
	}
	return nil
}

// Credentials of the operator, plain password hashed if no hash set
func (c *Config) Credentials() (auth.Credentials, error) {
	hash := c.PasswordHash
	if hash == "" {
		var err error
		if hash, err = auth.DefaultHasher.Hash(c.Password); err != nil {
			return auth.Credentials{}, fmt.Errorf("error while hashing password. Err: %w", err)
		}
	}

	return auth.Credentials{Username: c.Username, PasswordHash: hash}, nil
}

// LoadConfig builds config from every source in order:
// defaults, yaml file, .env file, process env, flags
func LoadConfig(args []string, getenv func(string) string, getwd func() (string, error)) (*Config, error) {
	c := NewConfig()

	path, err := ConfigPath(args, getenv)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := c.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := c.LoadDotEnv(getwd); err != nil {
		return nil, fmt.Errorf("error while loading .env. Err: %w", err)
	}
	if err := c.LoadEnv(getenv); err != nil {
		return nil, err
	}
	if err := c.ParseFlags(args); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}
