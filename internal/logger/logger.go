package logger

import (
	"os"
	"strings"

	"PropSync/internal/config"

	"github.com/sirupsen/logrus"
)

// New 按配置构建 logrus 日志器：级别非法时回退到 info，format=json 时输出 JSON
func New(cfg config.LogConfig) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		level = logrus.InfoLevel
		defer log.WithField("invalid_level", cfg.Level).Warn("日志级别配置非法，使用 info")
	}
	log.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return log
}
