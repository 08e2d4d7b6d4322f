package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/codec"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/merkle"
)

func treeCommand() *cli.Command {
	textFlag := &cli.BoolFlag{
		Name:  "text",
		Usage: "Hash leaf and include values as text with --alg instead of parsing them as digests",
	}
	leafFlag := &cli.StringSliceFlag{
		Name:     "leaf",
		Aliases:  []string{"l"},
		Usage:    "Leaf digest in tree order (repeatable or comma separated)",
		Required: true,
	}
	includeFlag := &cli.StringSliceFlag{
		Name:    "include",
		Aliases: []string{"i"},
		Usage:   "Leaf digest to reveal (repeatable or comma separated)",
	}
	proofFlag := &cli.StringFlag{
		Name:     "proof",
		Aliases:  []string{"p"},
		Usage:    "Encoded partial tree file, or - for stdin",
		Required: true,
	}

	return &cli.Command{
		Name:  "tree",
		Usage: "Build Merkle trees and partial trees",
		Subcommands: []*cli.Command{
			{
				Name:   "root",
				Usage:  "Print the root of the tree over the given leaves",
				Flags:  []cli.Flag{algorithmFlag(), textFlag, leafFlag},
				Action: treeRootAction,
			},
			{
				Name:   "prove",
				Usage:  "Build a partial tree revealing the --include leaves",
				Flags:  []cli.Flag{algorithmFlag(), textFlag, leafFlag, includeFlag, formatFlag(), outFlag()},
				Action: treeProveAction,
			},
			{
				Name:  "verify",
				Usage: "Check a partial tree against a root and the expected revealed leaves",
				Flags: []cli.Flag{
					algorithmFlag(), textFlag, proofFlag, includeFlag, formatFlag(),
					&cli.StringFlag{Name: "root", Aliases: []string{"r"}, Usage: "Claimed root digest", Required: true},
				},
				Action: treeVerifyAction,
			},
			{
				Name:  "index",
				Usage: "Print the leaf positions of a revealed digest",
				Flags: []cli.Flag{
					algorithmFlag(), textFlag, proofFlag, formatFlag(),
					&cli.StringFlag{Name: "leaf", Aliases: []string{"l"}, Usage: "Revealed leaf digest", Required: true},
				},
				Action: treeIndexAction,
			},
		},
	}
}

// leafValues turns flag values into digests, hashing them first with --text.
func leafValues(c *cli.Context, ds *digest.DigestService, values []string) ([]digest.SecureHash, error) {
	if !c.Bool("text") {
		return parseHashes(values)
	}
	hashes := make([]digest.SecureHash, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			hashes = append(hashes, ds.HashString(part))
		}
	}
	return hashes, nil
}

func buildTreeFromFlags(c *cli.Context) (*digest.DigestService, merkle.MerkleTree, error) {
	ds, err := digestServiceFromFlags(c)
	if err != nil {
		return nil, nil, err
	}
	leaves, err := leafValues(c, ds, c.StringSlice("leaf"))
	if err != nil {
		return nil, nil, err
	}
	tree, err := merkle.BuildMerkleTree(leaves, ds)
	if err != nil {
		return nil, nil, err
	}
	return ds, tree, nil
}

func readPartialTree(c *cli.Context) (*merkle.PartialMerkleTree, error) {
	format, err := codec.ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}
	data, err := readInput(c, c.String("proof"))
	if err != nil {
		return nil, fmt.Errorf("failed to read proof: %w", err)
	}
	var pmt merkle.PartialMerkleTree
	if err := decodeEncoded(format, data, &pmt); err != nil {
		return nil, fmt.Errorf("failed to decode proof: %w", err)
	}
	return &pmt, nil
}

func treeRootAction(c *cli.Context) error {
	_, tree, err := buildTreeFromFlags(c)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, tree.Hash().String())
	return err
}

func treeProveAction(c *cli.Context) error {
	format, err := codec.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}
	ds, tree, err := buildTreeFromFlags(c)
	if err != nil {
		return err
	}
	include, err := leafValues(c, ds, c.StringSlice("include"))
	if err != nil {
		return err
	}
	pmt, err := merkle.BuildPartialMerkleTree(tree, include)
	if err != nil {
		return err
	}
	return writeEncoded(c, format, pmt)
}

func treeVerifyAction(c *cli.Context) error {
	ds, err := digestServiceFromFlags(c)
	if err != nil {
		return err
	}
	pmt, err := readPartialTree(c)
	if err != nil {
		return err
	}
	root, err := digest.Parse(c.String("root"))
	if err != nil {
		return fmt.Errorf("invalid root: %w", err)
	}
	include, err := leafValues(c, ds, c.StringSlice("include"))
	if err != nil {
		return err
	}

	if !pmt.Verify(root, include) {
		return cli.Exit("invalid", 1)
	}
	_, err = fmt.Fprintln(c.App.Writer, "valid")
	return err
}

func treeIndexAction(c *cli.Context) error {
	ds, err := digestServiceFromFlags(c)
	if err != nil {
		return err
	}
	pmt, err := readPartialTree(c)
	if err != nil {
		return err
	}
	leaves, err := leafValues(c, ds, []string{c.String("leaf")})
	if err != nil {
		return err
	}
	if len(leaves) != 1 {
		return fmt.Errorf("exactly one leaf is required")
	}
	indices, err := pmt.LeafIndices(leaves[0])
	if err != nil {
		return err
	}
	for _, index := range indices {
		if _, err := fmt.Fprintln(c.App.Writer, index); err != nil {
			return err
		}
	}
	return nil
}
