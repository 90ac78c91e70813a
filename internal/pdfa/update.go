package pdfa

import (
	"bytes"
	"compress/zlib"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	reStartXref = regexp.MustCompile(`startxref\s+(\d+)\s+%%EOF\s*$`)
	reSize      = regexp.MustCompile(`/Size\s+(\d+)`)
	reRoot      = regexp.MustCompile(`/Root\s+(\d+)\s+0\s+R`)
	reInfo      = regexp.MustCompile(`/Info\s+(\d+)\s+0\s+R`)
	rePages     = regexp.MustCompile(`/Pages\s+(\d+)\s+0\s+R`)
	reMetadata  = regexp.MustCompile(`(?m)^(\d+) 0 obj\n<< /Type /Metadata /Subtype /XML`)
	reXrefEntry = regexp.MustCompile(`(?m)^(\d{10}) (\d{5}) n`)
)

// binaryComment follows the header line so that the file is treated as binary
const binaryComment = "%\xE2\xE3\xCF\xD3\n"

// baseDocument is what the incremental update needs to know about the
// document it is appended to.
type baseDocument struct {
	size     int
	root     int
	info     int
	pages    int
	metadata int
	prevXref int
}

func parseBase(pdf []byte) (*baseDocument, error) {
	m := reStartXref.FindSubmatch(pdf)
	if m == nil {
		return nil, fmt.Errorf("startxref not found")
	}
	prev, _ := strconv.Atoi(string(m[1]))

	idx := bytes.LastIndex(pdf, []byte("trailer"))
	if idx < 0 {
		return nil, fmt.Errorf("trailer not found")
	}
	trailer := pdf[idx:]

	base := &baseDocument{prevXref: prev}
	var err error
	if base.size, err = intMatch(reSize, trailer, "/Size"); err != nil {
		return nil, err
	}
	if base.root, err = intMatch(reRoot, trailer, "/Root"); err != nil {
		return nil, err
	}
	if base.info, err = intMatch(reInfo, trailer, "/Info"); err != nil {
		return nil, err
	}

	rootObj, err := findObject(pdf, base.root)
	if err != nil {
		return nil, err
	}
	if base.pages, err = intMatch(rePages, rootObj, "/Pages"); err != nil {
		return nil, err
	}
	if base.metadata, err = intMatch(reMetadata, pdf, "XMP metadata stream"); err != nil {
		return nil, err
	}
	return base, nil
}

// insertBinaryComment adds the binary marker comment after the header line
// and shifts the offsets of the single cross-reference section accordingly.
func insertBinaryComment(pdf []byte) ([]byte, error) {
	eol := bytes.IndexByte(pdf, '\n')
	if eol < 0 || !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		return nil, fmt.Errorf("header not found")
	}
	m := reStartXref.FindSubmatchIndex(pdf)
	if m == nil {
		return nil, fmt.Errorf("startxref not found")
	}
	xref, _ := strconv.Atoi(string(pdf[m[2]:m[3]]))
	trailer := bytes.LastIndex(pdf, []byte("trailer"))
	if xref <= eol || trailer < xref {
		return nil, fmt.Errorf("cross-reference section not found")
	}
	delta := len(binaryComment)

	section := reXrefEntry.ReplaceAllFunc(pdf[xref:trailer], func(entry []byte) []byte {
		off, _ := strconv.Atoi(string(entry[:10]))
		return []byte(fmt.Sprintf("%010d%s", off+delta, entry[10:]))
	})

	out := make([]byte, 0, len(pdf)+delta+4)
	out = append(out, pdf[:eol+1]...)
	out = append(out, binaryComment...)
	out = append(out, pdf[eol+1:xref]...)
	out = append(out, section...)
	out = append(out, pdf[trailer:m[2]]...)
	out = append(out, strconv.Itoa(xref+delta)...)
	return append(out, pdf[m[3]:]...), nil
}

func intMatch(re *regexp.Regexp, data []byte, name string) (int, error) {
	m := re.FindSubmatch(data)
	if m == nil {
		return 0, fmt.Errorf("%s not found", name)
	}
	return strconv.Atoi(string(m[1]))
}

// findObject returns the body of "num 0 obj ... endobj", last definition wins
func findObject(pdf []byte, num int) ([]byte, error) {
	marker := []byte("\n" + strconv.Itoa(num) + " 0 obj")
	start := bytes.LastIndex(pdf, marker)
	if start < 0 {
		return nil, fmt.Errorf("object %d not found", num)
	}
	end := bytes.Index(pdf[start:], []byte("endobj"))
	if end < 0 {
		return nil, fmt.Errorf("object %d not terminated", num)
	}
	return pdf[start : start+end], nil
}

// attachment is a file embedded with an associated-file relationship
type attachment struct {
	name         string
	description  string
	mimeSubtype  string
	relationship string
	data         []byte
	modDate      time.Time
}

// incrementalUpdate appends objects and a new cross-reference section to an
// existing document without touching its original bytes.
type incrementalUpdate struct {
	buf     *bytes.Buffer
	offsets map[int]int
}

func newIncrementalUpdate(base []byte) *incrementalUpdate {
	buf := bytes.NewBuffer(make([]byte, 0, len(base)+8192))
	buf.Write(base)
	if len(base) > 0 && base[len(base)-1] != '\n' {
		buf.WriteByte('\n')
	}
	return &incrementalUpdate{buf: buf, offsets: make(map[int]int)}
}

func (u *incrementalUpdate) object(num int, dict string) {
	u.offsets[num] = u.buf.Len()
	fmt.Fprintf(u.buf, "%d 0 obj\n%s\nendobj\n", num, dict)
}

func (u *incrementalUpdate) stream(num int, dict string, data []byte) {
	u.offsets[num] = u.buf.Len()
	fmt.Fprintf(u.buf, "%d 0 obj\n%s\nstream\n", num, dict)
	u.buf.Write(data)
	u.buf.WriteString("\nendstream\nendobj\n")
}

// finish writes the xref subsections and the trailer
func (u *incrementalUpdate) finish(base *baseDocument, size int, id []byte) []byte {
	nums := make([]int, 0, len(u.offsets))
	for n := range u.offsets {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	xref := u.buf.Len()
	u.buf.WriteString("xref\n0 1\n0000000000 65535 f \n")
	for i := 0; i < len(nums); {
		j := i
		for j+1 < len(nums) && nums[j+1] == nums[j]+1 {
			j++
		}
		fmt.Fprintf(u.buf, "%d %d\n", nums[i], j-i+1)
		for k := i; k <= j; k++ {
			fmt.Fprintf(u.buf, "%010d 00000 n \n", u.offsets[nums[k]])
		}
		i = j + 1
	}

	hexID := strings.ToUpper(hex.EncodeToString(id))
	fmt.Fprintf(u.buf, "trailer\n<< /Size %d /Root %d 0 R /Info %d 0 R /Prev %d /ID [<%s> <%s>] >>\n",
		size, base.root, base.info, base.prevXref, hexID, hexID)
	fmt.Fprintf(u.buf, "startxref\n%d\n%%%%EOF\n", xref)
	return u.buf.Bytes()
}

// appendAssociatedFile adds the attachment, the sRGB output intent, an
// Info dictionary matching the XMP packet and a catalog referencing them.
func appendAssociatedFile(pdf []byte, xmp []byte, att attachment, meta Metadata) ([]byte, error) {
	base, err := parseBase(pdf)
	if err != nil {
		return nil, err
	}

	compressed, err := deflate(att.data)
	if err != nil {
		return nil, err
	}
	profile, err := deflate(srgbProfile)
	if err != nil {
		return nil, err
	}
	sum := md5.Sum(att.data)

	fileNum := base.size
	specNum := base.size + 1
	iccNum := base.size + 2

	u := newIncrementalUpdate(pdf)

	u.stream(fileNum, fmt.Sprintf(
		"<< /Type /EmbeddedFile /Subtype /%s /Filter /FlateDecode /Length %d /Params << /Size %d /ModDate %s /CheckSum <%s> >> >>",
		att.mimeSubtype, len(compressed), len(att.data), pdfDate(att.modDate), strings.ToUpper(hex.EncodeToString(sum[:]))),
		compressed)

	name := pdfString(att.name)
	u.object(specNum, fmt.Sprintf(
		"<< /Type /Filespec /F %s /UF %s /Desc %s /AFRelationship /%s /EF << /F %d 0 R /UF %d 0 R >> >>",
		name, name, pdfString(att.description), att.relationship, fileNum, fileNum))

	u.stream(iccNum, fmt.Sprintf("<< /N 3 /Filter /FlateDecode /Length %d >>", len(profile)), profile)

	u.object(base.info, infoDict(meta))

	condition := pdfString(outputConditionID)
	catalog := fmt.Sprintf(
		"<< /Type /Catalog /Version /1.7 /Pages %d 0 R /Metadata %d 0 R /Names << /EmbeddedFiles << /Names [%s %d 0 R] >> >> /AF [%d 0 R] /PageMode /UseAttachments"+
			" /OutputIntents [<< /Type /OutputIntent /S /GTS_PDFA1 /OutputCondition %s /OutputConditionIdentifier %s /RegistryName %s /Info %s /DestOutputProfile %d 0 R >>]",
		base.pages, base.metadata, name, specNum, specNum,
		condition, condition, pdfString(iccRegistry), condition, iccNum)
	if meta.Language != "" {
		catalog += " /Lang " + pdfString(meta.Language)
	}
	u.object(base.root, catalog+" >>")

	idSource := md5.New()
	idSource.Write(att.data)
	idSource.Write(xmp)
	return u.finish(base, iccNum+1, idSource.Sum(nil)), nil
}

// infoDict mirrors the XMP properties: Title, Author, Subject, Creator,
// Producer and both dates, written in UTC like the XMP dates.
func infoDict(meta Metadata) string {
	var b strings.Builder
	b.WriteString("<<")
	for _, field := range []struct {
		key   string
		value string
	}{
		{"Title", meta.Title},
		{"Author", meta.Author},
		{"Subject", meta.Subject},
		{"Creator", meta.Creator},
		{"Producer", meta.Producer},
	} {
		if field.value != "" {
			fmt.Fprintf(&b, " /%s %s", field.key, pdfString(field.value))
		}
	}
	date := pdfDate(meta.Date)
	fmt.Fprintf(&b, " /CreationDate %s /ModDate %s >>", date, date)
	return b.String()
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pdfString encodes s as a literal string; non-ASCII text is written as UTF-16BE
func pdfString(s string) string {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`, "\r", `\r`, "\n", `\n`)
		return "(" + r.Replace(s) + ")"
	}

	var b strings.Builder
	b.WriteString("<FEFF")
	for _, r := range s {
		if r > 0xFFFF {
			r -= 0x10000
			fmt.Fprintf(&b, "%04X%04X", 0xD800+(r>>10), 0xDC00+(r&0x3FF))
			continue
		}
		fmt.Fprintf(&b, "%04X", r)
	}
	b.WriteString(">")
	return b.String()
}

func pdfDate(t time.Time) string {
	return "(D:" + t.UTC().Format("20060102150405") + "Z)"
}
