package logging

import (
	"os"

	nested "github.com/antonfisher/nested-logrus-formatter"
	log "github.com/sirupsen/logrus"
)

// Setup configures the global logrus logger. Unknown levels fall back to info.
func Setup(level string) {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&nested.Formatter{
		HideKeys:        false,
		FieldsOrder:     []string{"module", "source", "title", "artist"},
		TimestampFormat: "2006-01-02 15:04:05",
		NoColors:        os.Getenv("NO_COLOR") != "",
	})
	log.SetLevel(ParseLevel(level))
}

func ParseLevel(level string) log.Level {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
