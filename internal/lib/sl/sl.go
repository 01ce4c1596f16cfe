package sl

import (
	"log/slog"
)

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

func Module(mod string) slog.Attr {
	return slog.String("module", mod)
}

// Secret keeps the first characters of a credential so it can be matched in logs.
func Secret(key, value string) slog.Attr {
	if len(value) <= 6 {
		return slog.String(key, "***")
	}
	return slog.String(key, value[:4]+"***")
}
