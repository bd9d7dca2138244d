package logger

import (
	"github.com/sirupsen/logrus"
)

// Log — общий логгер приложения. Создаётся сразу, чтобы пакеты могли
// писать логи до вызова Init; Init лишь перенастраивает уровень и формат.
var Log = logrus.New()

// Init настраивает уровень и формат логов: текстовый вывод для
// development, JSON для агрегаторов в остальных окружениях.
func Init(level string, textFormat bool) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if textFormat {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		Log.SetFormatter(&logrus.JSONFormatter{})
	}
}
