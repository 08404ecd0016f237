package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/novvoo/go-pdfimages/pkg/images"
)

var listDigest bool

var listCmd = &cobra.Command{
	Use:   "list <PDF-file>",
	Short: "List the image objects of a PDF",
	Long: `List prints one line per image object found by the object scan.
Alpha masks are listed with type "smask" and the object ID they belong to
appears in the mask column of the image using them.`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listDigest, "digest", false, "decode each image and print its BLAKE2b digest")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	doc, err := images.Open(data)
	if err != nil {
		return err
	}
	defer doc.Close()

	placeholder := images.NewPlaceholderGenerator(images.PlaceholderOptions{})
	ex := images.NewObjectExtractor(cfg.Workers, placeholder, log)
	ix := ex.Index(doc)
	rc := images.NewReconstructor(ix, placeholder, cfg.Workers, log)

	fmt.Printf("page   num  type   width height color bpc  enc    smask     object ID")
	if listDigest {
		fmt.Printf(" digest")
	}
	fmt.Printf("\n")
	fmt.Printf("-----------------------------------------------------------------------\n")

	for i := range ix.Descriptors {
		d := &ix.Descriptors[i]
		kind := "image"
		if d.IsAlphaMask {
			kind = "smask"
		}
		smask := "-"
		if mask, ok := ix.Mask(i); ok {
			smask = fmt.Sprintf("%d %d", mask.Ref.ObjectNumber, mask.Ref.GenerationNumber)
		}
		fmt.Printf("%4d %5d  %-6s %5d %5d  %-5s %3d  %-6s %-9s %6d %2d",
			d.Page, i, kind,
			d.Width, d.Height,
			d.ColorSpace, d.BitsPerComponent,
			d.Encoding, smask,
			d.Ref.ObjectNumber, d.Ref.GenerationNumber)
		if listDigest && !d.IsAlphaMask {
			rec := rc.Reconstruct(i)
			digest := rec.Digest()
			if rec.IsPlaceholder() {
				digest = "(" + rec.Reason + ")"
			}
			fmt.Printf(" %s", digest)
		}
		fmt.Printf("\n")
	}
	return nil
}
