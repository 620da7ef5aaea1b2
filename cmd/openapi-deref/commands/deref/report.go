package deref

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/speakeasy-api/openapi-deref/cache"
	"github.com/speakeasy-api/openapi-deref/deref"
	"github.com/speakeasy-api/openapi-deref/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

func reportElapsed(w io.Writer, action string, elapsed time.Duration) {
	roundedElapsed := elapsed.Round(time.Millisecond)
	if roundedElapsed < time.Millisecond {
		roundedElapsed = time.Millisecond
	}

	fmt.Fprintf(w, "%s completed in %s\n", action, roundedElapsed)
}

func reportResult(w io.Writer, res *deref.Result) {
	if len(res.Errors) == 0 {
		printer.Fprintf(w, "✅ Dereferenced %s document - 0 errors\n", res.Dialect)
		return
	}

	printer.Fprintf(w, "⚠️  Dereferenced %s document - %d errors:\n\n", res.Dialect, len(res.Errors))
	fmt.Fprint(w, formatResolutionErrors(res.Errors))
	fmt.Fprintln(w)
}

func formatResolutionErrors(errs []*errors.ResolutionError) string {
	var sb strings.Builder
	indexWidth := len(strconv.Itoa(len(errs)))

	for i, err := range errs {
		fmt.Fprintf(&sb, "%*d. %s\n", indexWidth, i+1, err.Error())
		if err.BaseDoc != "" {
			fmt.Fprintf(&sb, "%*s  in %s\n", indexWidth, "", err.BaseDoc)
		}
	}

	return sb.String()
}

func reportCacheStats(w io.Writer) {
	stats := cache.GetAllCacheStats()
	printer.Fprintf(w, "📋 Cache: %d documents, %d parsed URLs, %d resolved references\n",
		stats.DocumentCount, stats.URLCacheSize, stats.ReferenceCacheSize)
}
