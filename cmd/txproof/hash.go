package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
)

func hashCommand() *cli.Command {
	return &cli.Command{
		Name:      "hash",
		Usage:     "Hash each argument and print it as ALGORITHM:hex",
		ArgsUsage: "<data>...",
		Flags: []cli.Flag{
			algorithmFlag(),
			&cli.BoolFlag{
				Name:  "hex",
				Usage: "Treat arguments as 0x-prefixed hex bytes instead of text",
			},
			&cli.BoolFlag{
				Name:  "rehash",
				Usage: "Hash the digest once more, as batch signing does with transaction ids",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("at least one argument is required")
			}
			ds, err := digestServiceFromFlags(c)
			if err != nil {
				return err
			}
			for _, arg := range c.Args().Slice() {
				data := []byte(arg)
				if c.Bool("hex") {
					if data, err = hexutil.Decode(arg); err != nil {
						return fmt.Errorf("invalid hex argument %q: %w", arg, err)
					}
				}
				h := ds.Hash(data)
				if c.Bool("rehash") {
					h = ds.Rehash(h)
				}
				if _, err := fmt.Fprintln(c.App.Writer, h.String()); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
