package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

var bannerColors = []string{
	"\x1b[38;5;165m",
	"\x1b[38;5;189m",
	"\x1b[38;5;207m",
	"\x1b[38;5;219m",
	"\x1b[38;5;225m",
	"\x1b[38;5;231m",
}

// PrintBannerFromFile prints filename with a color gradient. A missing file
// falls back to a one-line banner with the service name.
func PrintBannerFromFile(w io.Writer, filename, name string) error {
	data, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		data = []byte(defaultBanner(name))
	} else if err != nil {
		return err
	}

	i := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		color := bannerColors[i%len(bannerColors)]
		if _, err := fmt.Fprintln(w, color+line+"\x1b[0m"); err != nil {
			return err
		}
		i++
	}
	return nil
}

func defaultBanner(name string) string {
	if name == "" {
		name = "LingIVR"
	}
	rule := strings.Repeat("=", len(name)+8)
	return rule + "\n==  " + name + "  ==\n" + rule
}
