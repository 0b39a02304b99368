package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/paramsync/cmd/paramsync-gcs/app"
)

func main() {
	app.NewApp().Run()
}
