package console

import (
	"fmt"
	"io"
	"os"
)

const PictoBattery = "🔋"
const PictoPlug = "🔌"
const PictoBell = "🔔"
const PictoStop = "🚫"

var writer io.Writer = os.Stdout
var errWriter io.Writer = os.Stderr

func SetOutput(w, errw io.Writer) {
	writer = w
	errWriter = errw
}

func Writer() io.Writer {
	return writer
}

func Error(msg string) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Red("ERROR"), msg)
}

func Warnf(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Yellow("WARN"), fmt.Sprintf(msg, args...))
}

func Infof(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", White("..."), fmt.Sprintf(msg, args...))
}

func PInfof(picto, msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", picto, fmt.Sprintf(msg, args...))
}

func Printf(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, msg, args...)
}
