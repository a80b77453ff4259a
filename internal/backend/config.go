package backend

import (
	"fmt"

	"spendlens/internal/config"
)

// FromAppConfig converts the application config to recorder config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	recorderType := RecorderType(appConfig.RunRecorder)
	if !recorderType.IsValid() {
		return Config{}, fmt.Errorf("invalid run recorder in config: %s", appConfig.RunRecorder)
	}

	return Config{
		Type:               recorderType,
		SQLiteDBPath:       appConfig.SQLiteDBPath,
		AMQPURL:            appConfig.AMQPURL,
		AMQPExchange:       appConfig.AMQPExchange,
		AMQPQueue:          appConfig.AMQPQueue,
		AMQPConnectTimeout: appConfig.AMQPConnectTimeout,
	}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid run recorder: %s", c.Type)
	}

	switch c.Type {
	case SQLiteRecorder:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for the sqlite recorder")
		}
	case AMQPRecorder:
		if c.AMQPURL == "" {
			return fmt.Errorf("AMQP URL is required for the amqp recorder")
		}
		if c.AMQPExchange == "" || c.AMQPQueue == "" {
			return fmt.Errorf("AMQP exchange and queue are required for the amqp recorder")
		}
	}
	return nil
}

// RecorderTypeStrings returns every valid recorder name.
func RecorderTypeStrings() []string {
	types := []RecorderType{NoneRecorder, SQLiteRecorder, AMQPRecorder}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
