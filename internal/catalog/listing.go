package catalog

import (
	"fmt"
	"io"
	"strings"
	"time"
)

const listingBoxWidth = 100

// BytesToHuman converts a byte count to a human-readable string with
// thousands separators, padded to a fixed width so listing columns line up.
// Byte counts are never negative; a negative value is a caller bug.
func BytesToHuman(n int64) string {
	if n < 0 {
		panic(fmt.Sprintf("negative byte count %d", n))
	}
	var s string
	switch {
	case n < 1024:
		s = GroupThousands(n) + " Bytes"
	case n < 1024*1024:
		s = groupedFloat(float64(n)/1024) + " KB"
	case n < 1024*1024*1024:
		s = groupedFloat(float64(n)/(1024*1024)) + " MB"
	case n < 1024*1024*1024*1024:
		s = groupedFloat(float64(n)/(1024*1024*1024)) + " GB"
	default:
		s = groupedFloat(float64(n)/(1024*1024*1024*1024)) + " TB"
	}
	if len(s) < 10 {
		s += strings.Repeat(" ", 10-len(s))
	}
	return s
}

// GroupThousands renders n with comma thousands separators.
func GroupThousands(n int64) string {
	return groupDigits(fmt.Sprintf("%d", n))
}

func groupedFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	dot := strings.IndexByte(s, '.')
	return groupDigits(s[:dot]) + s[dot:]
}

func groupDigits(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// ListingLine formats one listing line for a record:
// date, padded human size, archive path, exact byte count.
func ListingLine(rec FileRecord, prefix string) string {
	return fmt.Sprintf("%s%s %s %s  %d\n",
		prefix, rec.ModTime.Format("2006-01-02"), BytesToHuman(rec.Size), rec.Path, rec.Size)
}

// ListingHeader renders the boxed summary header that opens every listing
// file.
func ListingHeader(title string, totalSize, maxFileSize int64, totalFiles int, inputDir string, now time.Time) string {
	center := func(s string) string {
		inner := listingBoxWidth - 2
		if len(s) >= inner {
			return "*" + s[:inner] + "*\n"
		}
		left := (inner - len(s)) / 2
		right := inner - len(s) - left
		return "*" + strings.Repeat(" ", left) + s + strings.Repeat(" ", right) + "*\n"
	}

	blank := "*" + strings.Repeat(" ", listingBoxWidth-2) + "*\n"
	bar := strings.Repeat("*", listingBoxWidth) + "\n"

	var b strings.Builder
	b.WriteString(bar)
	b.WriteString(blank)
	b.WriteString(center("Directory Listing for: " + title))
	b.WriteString(center("Total Size: " + strings.TrimSpace(BytesToHuman(totalSize))))
	b.WriteString(center("Max File Size: " + strings.TrimSpace(BytesToHuman(maxFileSize))))
	b.WriteString(center(fmt.Sprintf("Total Files: %s", GroupThousands(int64(totalFiles)))))
	b.WriteString(blank)
	b.WriteString(bar)
	b.WriteString("\n")
	b.WriteString("Printed on: " + now.Format("2006-01-02 15:04:05") + "\n\n")
	b.WriteString("Running with input directory: " + inputDir + "\n\n")
	return b.String()
}

// WriteFullListing writes the complete catalog listing, header included.
func WriteFullListing(w io.Writer, c *Catalog, now time.Time) error {
	header := ListingHeader(c.Root, c.TotalSize(), c.MaxFileSize(), c.Len(), c.InputDir, now)
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	for _, rec := range c.Records {
		if _, err := io.WriteString(w, ListingLine(rec, "")); err != nil {
			return err
		}
	}
	return nil
}
