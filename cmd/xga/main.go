// cmd/xga/main.go
package main

import (
	"xga/internal/app"
	"xga/internal/appshell"
)

func main() {
	appshell.Main(app.RunContext)
}
