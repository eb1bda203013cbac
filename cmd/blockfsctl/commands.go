package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/andrehsu/blockfs/blockdev"
	"github.com/andrehsu/blockfs/fs"
	"github.com/andrehsu/blockfs/geometry"
	"github.com/andrehsu/blockfs/utilities/compression"
	"github.com/andrehsu/blockfs/vnode"
)

func formatCommand() *cli.Command {
	return &cli.Command{
		Name:      "format",
		Usage:     "create a new, empty filesystem image",
		ArgsUsage: "<image-path>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "geometry",
				Usage: fmt.Sprintf("named preset: %v", geometry.Names()),
				Value: "standard",
			},
			&cli.UintFlag{
				Name:  "total-blocks",
				Usage: "override the preset's total block count",
			},
			&cli.UintFlag{
				Name:  "inode-bitmap-blocks",
				Usage: "override the preset's inode bitmap block count",
			},
		},
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("format requires an image path")
			}
			preset, err := geometry.Lookup(c.String("geometry"))
			if err != nil {
				return err
			}
			totalBlocks := preset.TotalBlocks
			if c.IsSet("total-blocks") {
				totalBlocks = uint32(c.Uint("total-blocks"))
			}
			inodeBitmapBlocks := preset.InodeBitmapBlocks
			if c.IsSet("inode-bitmap-blocks") {
				inodeBitmapBlocks = uint32(c.Uint("inode-bitmap-blocks"))
			}

			dev, err := blockdev.Truncate(path, totalBlocks)
			if err != nil {
				return err
			}
			defer dev.Close()

			f := fs.Create(dev, totalBlocks, inodeBitmapBlocks)
			f.Flush()
			fmt.Printf("formatted %s: %d blocks, %d reserved for the inode bitmap\n", path, totalBlocks, inodeBitmapBlocks)
			return nil
		},
	}
}

func openForRead(path string) (*fs.Filesystem, *blockdev.File, error) {
	dev, err := blockdev.OpenFile(path, os.O_RDWR)
	if err != nil {
		return nil, nil, err
	}
	return fs.Open(dev), dev, nil
}

func lsCommand() *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "list the files in an image's root directory",
		ArgsUsage: "<image-path>",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("ls requires an image path")
			}
			f, dev, err := openForRead(path)
			if err != nil {
				return err
			}
			defer dev.Close()

			root := vnode.Root(f)
			for _, name := range root.Ls() {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func catCommand() *cli.Command {
	return &cli.Command{
		Name:      "cat",
		Usage:     "print the contents of a file in an image's root directory",
		ArgsUsage: "<image-path> <name>",
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 2 {
				return fmt.Errorf("cat requires an image path and a file name")
			}
			path, name := c.Args().Get(0), c.Args().Get(1)
			f, dev, err := openForRead(path)
			if err != nil {
				return err
			}
			defer dev.Close()

			root := vnode.Root(f)
			file, ok := root.Find(name)
			if !ok {
				return fmt.Errorf("%s: no such file", name)
			}

			buf := make([]byte, 4096)
			offset := 0
			for {
				n := file.ReadAt(offset, buf)
				if n == 0 {
					break
				}
				if _, err := os.Stdout.Write(buf[:n]); err != nil {
					return err
				}
				offset += n
			}
			return nil
		},
	}
}

// exportCommand archives a raw image to a small RLE8+gzip file.
func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "archive an image to a compressed file",
		ArgsUsage: "<image-path> <archive-path>",
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 2 {
				return fmt.Errorf("export requires an image path and an archive path")
			}
			imagePath, archivePath := c.Args().Get(0), c.Args().Get(1)

			src, err := os.Open(imagePath)
			if err != nil {
				return err
			}
			defer src.Close()

			dst, err := os.Create(archivePath)
			if err != nil {
				return err
			}
			defer dst.Close()

			written, err := compression.ExportImage(src, dst)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			fmt.Printf("wrote %s: %d compressed bytes\n", archivePath, written)
			return nil
		},
	}
}

// importCommand restores an image previously produced by exportCommand.
func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "restore an image from a compressed archive",
		ArgsUsage: "<archive-path> <image-path>",
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 2 {
				return fmt.Errorf("import requires an archive path and an image path")
			}
			archivePath, imagePath := c.Args().Get(0), c.Args().Get(1)

			src, err := os.Open(archivePath)
			if err != nil {
				return err
			}
			defer src.Close()

			dst, err := os.Create(imagePath)
			if err != nil {
				return err
			}
			defer dst.Close()

			written, err := compression.ImportImage(src, dst)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			fmt.Printf("wrote %s: %d bytes\n", imagePath, written)
			return nil
		},
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "walk an image and report structural inconsistencies",
		ArgsUsage: "<image-path>",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("check requires an image path")
			}
			f, dev, err := openForRead(path)
			if err != nil {
				return err
			}
			defer dev.Close()

			if err := f.Check(); err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
			fmt.Println("clean")
			return nil
		},
	}
}
