package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/portalcraft/pagesapi/portal/webapi"

	"github.com/urfave/cli/v2"
)

var cmdUpload = &cli.Command{
	Name:      "upload",
	Usage:     "upload a local file to a file or image column",
	ArgsUsage: `<entity-set> <record-id> <column> <path>`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "name",
			Usage: "file name to store (defaults to the base name of path)",
		},
	},
	Action: runUpload,
}

func runUpload(cctx *cli.Context) error {
	ctx := cctx.Context
	set, id, err := recordArgs(cctx)
	if err != nil {
		return err
	}
	col, err := logicalNameArg(cctx, 2, "column")
	if err != nil {
		return err
	}
	if cctx.Args().Len() != 4 {
		return fmt.Errorf("need local file path argument")
	}
	fPath := cctx.Args().Get(3)
	name := cctx.String("name")
	if name == "" {
		name = filepath.Base(fPath)
	}

	f, err := os.Open(fPath)
	if err != nil {
		return err
	}
	defer f.Close()

	c, err := loadPortalClient(cctx)
	if err != nil {
		return err
	}
	return c.UploadFile(ctx, set, id, col, name, f)
}

var cmdDownload = &cli.Command{
	Name:      "download",
	Usage:     "download the content of a file or image column",
	ArgsUsage: `<entity-set> <record-id> <column>`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "file path or directory to write to, or '-' for stdout (defaults to the portal file name in the current directory)",
		},
		&cli.StringFlag{
			Name:  "default-name",
			Usage: "file name to use when the portal does not provide one",
			Value: webapi.DefaultDownloadName,
		},
		&cli.BoolFlag{
			Name:  "force",
			Usage: "overwrite an existing file",
		},
	},
	Action: runDownload,
}

func runDownload(cctx *cli.Context) error {
	ctx := cctx.Context
	set, id, err := recordArgs(cctx)
	if err != nil {
		return err
	}
	col, err := logicalNameArg(cctx, 2, "column")
	if err != nil {
		return err
	}

	c, err := loadPortalClient(cctx)
	if err != nil {
		return err
	}
	file, err := c.DownloadFile(ctx, set, id, col, cctx.String("default-name"))
	if err != nil {
		return err
	}

	output := cctx.String("output")
	if output == "-" {
		_, err = os.Stdout.Write(file.Content)
		return err
	}
	outPath := downloadPath(output, file.Name, cctx.String("default-name"))

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if cctx.Bool("force") {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(outPath, flags, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(file.Content); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %d bytes to %s\n", len(file.Content), outPath)
	return nil
}

// Picks the local path for a downloaded file. Names from the portal are reduced to their base name so they can not escape the output directory.
func downloadPath(output, name, defaultName string) string {
	base := filepath.Base(localFileName(name))
	if base == "." || base == ".." || base == string(filepath.Separator) {
		base = filepath.Base(defaultName)
	}
	if output == "" {
		return base
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, base)
	}
	return output
}

// Turns a file name taken verbatim from Content-Disposition (eg `"report.pdf"; size=1024`) in to a plain local name.
func localFileName(name string) string {
	if i := strings.Index(name, ";"); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSpace(name)
	if len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"' {
		name = name[1 : len(name)-1]
	}
	return strings.TrimSpace(name)
}
