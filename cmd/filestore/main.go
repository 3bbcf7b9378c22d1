package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/filestore/internal/config"
	"github.com/andresuchdata/filestore/internal/storage"
	"github.com/andresuchdata/filestore/pkg/logger"
)

type routerKey struct{}

func newPathFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "path",
		Usage: "Logical directory of the object",
	}
}

func newFilenameFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "filename",
		Usage:    "Stored file name",
		Required: required,
	}
}

func initRouter(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.SetLevel(c.String("log-level"))

	router, err := storage.NewRouter(c.Context, cfg.Storage, storage.WithLogger(logger.Log))
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	c.Context = context.WithValue(c.Context, routerKey{}, router)
	return nil
}

func routerFrom(c *cli.Context) *storage.Router {
	return c.Context.Value(routerKey{}).(*storage.Router)
}

func main() {
	app := &cli.App{
		Name:  "filestore",
		Usage: "Upload, fetch and delete files on the configured storage backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: initRouter,
		Commands: []*cli.Command{
			{
				Name:      "upload",
				Usage:     "Upload local files; each is stored under its base name without extension",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					newPathFlag(),
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Maximum uploads in flight",
						Value: 4,
					},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return fmt.Errorf("at least one file is required")
					}
					return uploadFiles(c.Context, routerFrom(c), c.String("path"), c.Args().Slice(), c.Int("concurrency"), os.Stdout)
				},
			},
			{
				Name:  "get",
				Usage: "Write an object to a file or stdout",
				Flags: []cli.Flag{
					newPathFlag(),
					newFilenameFlag(true),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Destination file, stdout when empty",
					},
					&cli.BoolFlag{
						Name:  "base64",
						Usage: "Print the object base64 encoded",
					},
				},
				Action: func(c *cli.Context) error {
					return getFile(c.Context, routerFrom(c), c.String("path"), c.String("filename"), c.String("output"), c.Bool("base64"), os.Stdout)
				},
			},
			{
				Name:  "url",
				Usage: "Print a short-lived access URL",
				Flags: []cli.Flag{
					newPathFlag(),
					newFilenameFlag(true),
				},
				Action: func(c *cli.Context) error {
					return printURL(c.Context, routerFrom(c), c.String("path"), c.String("filename"), os.Stdout)
				},
			},
			{
				Name:  "delete",
				Usage: "Delete an object",
				Flags: []cli.Flag{
					newPathFlag(),
					newFilenameFlag(true),
					&cli.StringFlag{
						Name:  "extension",
						Usage: "Extension appended to the key on remote backends, e.g. .png",
					},
				},
				Action: func(c *cli.Context) error {
					return deleteFile(c.Context, routerFrom(c), c.String("path"), c.String("filename"), c.String("extension"), os.Stdout)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
