// Package packaging provides the thin e-book and archive packagers. They
// consume rendered fragments, header fields, and the attachment list, and
// produce a single packaged artifact file.
package packaging

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/bindery/internal/document"
	binderrors "git.home.luguber.info/inful/bindery/internal/errors"
	"git.home.luguber.info/inful/bindery/internal/render"
)

// Book carries everything the e-book packager needs.
type Book struct {
	Title       string
	Author      string
	Language    string // machine code, e.g. "ru"
	Fragments   []document.Fragment
	Attachments []string
}

// WriteEPUB packages the book into an EPUB container at path. The write is
// atomic: the container is assembled in memory and replaces any prior
// artifact in one rename.
func WriteEPUB(path string, book Book) error {
	if len(book.Fragments) == 0 {
		return binderrors.New(binderrors.CategoryBuild, binderrors.SeverityFatal,
			"e-book needs at least one fragment").WithContext("path", path)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	// mimetype must be the first entry and stored uncompressed
	mimetype, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return fmt.Errorf("create mimetype entry: %w", err)
	}
	if _, err := mimetype.Write([]byte("application/epub+zip")); err != nil {
		return fmt.Errorf("write mimetype entry: %w", err)
	}

	if err := addZipFile(zw, "META-INF/container.xml", []byte(containerXML)); err != nil {
		return err
	}

	identifier := "urn:uuid:" + uuid.NewString()
	if err := addZipFile(zw, "OEBPS/content.opf", opfManifest(book, identifier)); err != nil {
		return err
	}
	if err := addZipFile(zw, "OEBPS/nav.xhtml", navDocument(book)); err != nil {
		return err
	}

	for i, frag := range book.Fragments {
		name := fmt.Sprintf("OEBPS/chapter-%03d.xhtml", i+1)
		if err := addZipFile(zw, name, chapterDocument(book, frag)); err != nil {
			return err
		}
	}

	for _, attachment := range book.Attachments {
		data, err := os.ReadFile(attachment)
		if err != nil {
			return binderrors.FileSystemError(attachment, err)
		}
		name := "OEBPS/attachments/" + filepath.Base(attachment)
		if err := addZipFile(zw, name, data); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize epub container: %w", err)
	}
	return render.WriteAtomic(path, buf.Bytes())
}

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

func opfManifest(book Book, identifier string) []byte {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="pub-id">` + "\n")
	sb.WriteString("  <metadata xmlns:dc=\"http://purl.org/dc/elements/1.1/\">\n")
	fmt.Fprintf(&sb, "    <dc:identifier id=\"pub-id\">%s</dc:identifier>\n", identifier)
	fmt.Fprintf(&sb, "    <dc:title>%s</dc:title>\n", html.EscapeString(book.Title))
	fmt.Fprintf(&sb, "    <dc:creator>%s</dc:creator>\n", html.EscapeString(book.Author))
	fmt.Fprintf(&sb, "    <dc:language>%s</dc:language>\n", book.Language)
	sb.WriteString("  </metadata>\n  <manifest>\n")
	sb.WriteString(`    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>` + "\n")
	for i := range book.Fragments {
		fmt.Fprintf(&sb, "    <item id=\"ch%03d\" href=\"chapter-%03d.xhtml\" media-type=\"application/xhtml+xml\"/>\n", i+1, i+1)
	}
	sb.WriteString("  </manifest>\n  <spine>\n")
	for i := range book.Fragments {
		fmt.Fprintf(&sb, "    <itemref idref=\"ch%03d\"/>\n", i+1)
	}
	sb.WriteString("  </spine>\n</package>\n")
	return []byte(sb.String())
}

func navDocument(book Book) []byte {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">` + "\n")
	fmt.Fprintf(&sb, "<head><title>%s</title></head>\n<body>\n", html.EscapeString(book.Title))
	sb.WriteString("<nav epub:type=\"toc\"><ol>\n")
	for i, frag := range book.Fragments {
		title := frag.Title
		if title == "" {
			title = fmt.Sprintf("Section %d", i+1)
		}
		fmt.Fprintf(&sb, "<li><a href=\"chapter-%03d.xhtml\">%s</a></li>\n", i+1, html.EscapeString(title))
	}
	sb.WriteString("</ol></nav>\n</body>\n</html>\n")
	return []byte(sb.String())
}

func chapterDocument(book Book, frag document.Fragment) []byte {
	title := frag.Title
	if title == "" {
		title = book.Title
	}
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml">` + "\n")
	fmt.Fprintf(&sb, "<head><title>%s</title></head>\n<body>\n", html.EscapeString(title))
	sb.WriteString(frag.Body)
	sb.WriteString("\n</body>\n</html>\n")
	return []byte(sb.String())
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create container entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write container entry %s: %w", name, err)
	}
	return nil
}
