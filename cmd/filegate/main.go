package main

import (
	"context"

	"github.com/dalemusser/waffle/app"
	"github.com/kirubae/filegate/internal/app/bootstrap"
)

func main() {
	app.Run(context.Background(), bootstrap.Hooks)
}
