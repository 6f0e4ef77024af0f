package main

import (
	"bytes"
	"io"

	"github.com/dimiro1/banner"
)

// Version is stamped at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func printBanner(w io.Writer) {
	tpl := "{{ .Title \"VOCALIS\" \"\" 0 }}\nVersion: " + Version + "\n"
	banner.Init(w, true, true, bytes.NewBufferString(tpl))
}
