// efsh is an interactive shell over an easy-fs image: list, read,
// write, and remove files without mounting anything.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"rvos/ufs"
)

func run(u *ufs.Ufs_t, rw io.ReadWriter) error {
	t := term.NewTerminal(rw, "efsh> ")
	for {
		line, err := t.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "ls":
			for _, name := range u.Ls() {
				fmt.Fprintf(t, "%s\n", name)
			}
		case "cat":
			if len(fields) != 2 {
				fmt.Fprintf(t, "usage: cat <name>\n")
				continue
			}
			data, err := u.Read(fields[1])
			if err != nil {
				fmt.Fprintf(t, "%v\n", err)
				continue
			}
			t.Write(data)
		case "put":
			if len(fields) != 3 {
				fmt.Fprintf(t, "usage: put <hostfile> <name>\n")
				continue
			}
			data, err := os.ReadFile(fields[1])
			if err != nil {
				fmt.Fprintf(t, "%v\n", err)
				continue
			}
			if err := u.MkFile(fields[2], data); err != nil {
				fmt.Fprintf(t, "%v\n", err)
			}
		case "new":
			if len(fields) != 2 {
				fmt.Fprintf(t, "usage: new <name>\n")
				continue
			}
			if err := u.MkFile(fields[1], nil); err != nil {
				fmt.Fprintf(t, "%v\n", err)
			}
		case "rm":
			if len(fields) != 2 {
				fmt.Fprintf(t, "usage: rm <name>\n")
				continue
			}
			if err := u.Unlink(fields[1]); err != nil {
				fmt.Fprintf(t, "%v\n", err)
			}
		case "df":
			ni, nd := u.Sizes()
			fmt.Fprintf(t, "%d inodes, %d data blocks in use\n", ni, nd)
		case "exit", "quit":
			return nil
		default:
			fmt.Fprintf(t, "commands: ls cat put new rm df exit\n")
		}
	}
}

type stdio_t struct{}

func (stdio_t) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio_t) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

func main() {
	img := flag.String("img", "fs.img", "image to open")
	flag.Parse()

	disk, err := ufs.Opendisk(*img)
	if err != nil {
		slog.Error("open image", "err", err)
		os.Exit(1)
	}
	u, err := ufs.BootFS(disk)
	if err != nil {
		slog.Error("mount image", "err", err)
		os.Exit(1)
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		old, err := term.MakeRaw(fd)
		if err != nil {
			slog.Error("raw mode", "err", err)
			os.Exit(1)
		}
		defer term.Restore(fd, old)
	}
	if err := run(u, stdio_t{}); err != nil {
		slog.Error("shell", "err", err)
	}
	u.Sync()
	if err := disk.Close(); err != nil {
		slog.Error("close image", "err", err)
	}
}
