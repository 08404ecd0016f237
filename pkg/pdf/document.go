package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"regexp"
	"sort"
	"strconv"
	"sync"
)

var (
	// ErrNotPDF is returned when the data does not start with a PDF header
	ErrNotPDF = errors.New("not a PDF file")
	// ErrEncrypted is returned for encrypted documents that cannot be
	// opened with an empty password
	ErrEncrypted = errors.New("cannot decrypt document")
)

// maxResolveDepth bounds chains of references pointing at references
const maxResolveDepth = 32

// Document represents a PDF document
type Document struct {
	data    []byte
	Version string
	Trailer Dictionary
	Root    Dictionary
	Pages   []*Page

	// Reconstructed is set when the cross-reference data was rebuilt by
	// scanning the file body.
	Reconstructed bool

	xref map[int]xrefEntry

	// security decrypts objects as they are loaded; the Encrypt
	// dictionary itself is stored in the clear
	security   *SecurityHandler
	encryptObj int

	mu         sync.Mutex
	objects    map[int]Object
	objStreams map[int]*objectStream
}

// xrefEntry represents an entry in the cross-reference table
type xrefEntry struct {
	Offset     int64
	Generation int
	InUse      bool
	// For compressed objects
	StreamObjNum int
	Index        int
}

// objectStream is a decoded /Type /ObjStm stream
type objectStream struct {
	data    []byte
	first   int64
	objNums []int
	offsets []int64
}

// Page represents a PDF page
type Page struct {
	doc        *Document
	Dictionary Dictionary
	Number     int
	Ref        Reference
	MediaBox   Rectangle
	CropBox    Rectangle
	Resources  Dictionary
}

// Rectangle represents a PDF rectangle
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// Open opens a PDF file
func Open(filename string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return NewDocument(data)
}

// NewReader creates a document from everything r yields
func NewReader(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return NewDocument(data)
}

// NewDocument creates a new document from PDF data. The data is not copied
// and must not be modified while the document is in use.
func NewDocument(data []byte) (*Document, error) {
	doc := &Document{
		data:       data,
		xref:       make(map[int]xrefEntry),
		objects:    make(map[int]Object),
		objStreams: make(map[int]*objectStream),
	}

	if err := doc.parse(); err != nil {
		return nil, err
	}

	return doc, nil
}

// parse parses the PDF document
func (d *Document) parse() error {
	headerAt := bytes.Index(d.data[:min(len(d.data), 1024)], []byte("%PDF-"))
	if headerAt < 0 {
		return ErrNotPDF
	}
	header := d.data[headerAt+5:]
	end := bytes.IndexAny(header, "\r\n")
	if end < 0 {
		end = len(header)
	}
	d.Version = string(bytes.TrimSpace(header[:end]))
	if d.Version == "" {
		return fmt.Errorf("%w: missing version in header", ErrNotPDF)
	}

	if err := d.loadXRef(); err != nil {
		d.reset()
		if rerr := d.reconstruct(); rerr != nil {
			return fmt.Errorf("%v; reconstruction failed: %w", err, rerr)
		}
	}

	if enc := d.Trailer.Get("Encrypt"); enc != nil {
		if err := d.setupSecurity(enc); err != nil {
			return fmt.Errorf("%w: %v", ErrEncrypted, err)
		}
	}

	return d.parsePages()
}

// setupSecurity authenticates with the empty password and drops every
// object cached before decryption was possible
func (d *Document) setupSecurity(enc Object) error {
	ref, isRef := enc.(Reference)
	obj, err := d.ResolveObject(enc)
	if err != nil {
		return err
	}
	dict, ok := obj.(Dictionary)
	if !ok {
		return errors.New("encrypt entry is not a dictionary")
	}

	var id []byte
	if ids, ok := d.Trailer.GetArray("ID"); ok && len(ids) > 0 {
		id = stringBytes(ids[0])
	}
	sh, err := NewSecurityHandler(dict, id)
	if err != nil {
		return err
	}
	if err := sh.Authenticate(""); err != nil {
		return err
	}

	d.mu.Lock()
	d.objects = make(map[int]Object)
	d.objStreams = make(map[int]*objectStream)
	if isRef {
		d.encryptObj = ref.ObjectNumber
		d.objects[ref.ObjectNumber] = dict
	}
	d.security = sh
	d.mu.Unlock()
	return d.loadRoot()
}

// loadXRef reads the cross-reference data named by startxref and resolves
// the catalog through it.
func (d *Document) loadXRef() error {
	startxref, err := d.findStartXRef()
	if err != nil {
		return err
	}
	if err := d.parseXRef(startxref); err != nil {
		return err
	}
	return d.loadRoot()
}

func (d *Document) loadRoot() error {
	rootRef := d.Trailer.Get("Root")
	if rootRef == nil {
		return fmt.Errorf("missing Root in trailer")
	}
	rootObj, err := d.ResolveObject(rootRef)
	if err != nil {
		return fmt.Errorf("resolve Root: %w", err)
	}
	root, ok := rootObj.(Dictionary)
	if !ok {
		return fmt.Errorf("Root is not a dictionary")
	}
	d.Root = root
	return nil
}

func (d *Document) reset() {
	d.Trailer = nil
	d.Root = nil
	d.xref = make(map[int]xrefEntry)
	d.objects = make(map[int]Object)
	d.objStreams = make(map[int]*objectStream)
}

// findStartXRef finds the startxref position
func (d *Document) findStartXRef() (int64, error) {
	searchLen := min(len(d.data), 1024)
	tail := d.data[len(d.data)-searchLen:]
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found")
	}

	start := idx + len("startxref")
	for start < len(tail) && isWhitespace(tail[start]) {
		start++
	}
	end := start
	for end < len(tail) && tail[end] >= '0' && tail[end] <= '9' {
		end++
	}

	offset, err := strconv.ParseInt(string(tail[start:end]), 10, 64)
	if err != nil || offset >= int64(len(d.data)) {
		return 0, fmt.Errorf("invalid startxref offset")
	}
	return offset, nil
}

// parseXRef follows the chain of cross-reference sections starting at
// offset. Entries from newer sections win.
func (d *Document) parseXRef(offset int64) error {
	visited := make(map[int64]bool)
	for offset >= 0 {
		if visited[offset] {
			return nil
		}
		visited[offset] = true
		if offset >= int64(len(d.data)) {
			return fmt.Errorf("xref offset %d out of range", offset)
		}

		pos := offset
		for pos < int64(len(d.data)) && isWhitespace(d.data[pos]) {
			pos++
		}

		var (
			trailer Dictionary
			err     error
		)
		if bytes.HasPrefix(d.data[pos:], []byte("xref")) {
			trailer, err = d.parseXRefTable(pos)
		} else {
			trailer, err = d.parseXRefStream(pos)
		}
		if err != nil {
			return err
		}
		d.mergeTrailer(trailer)

		// hybrid files carry extra entries in an xref stream
		if stm, ok := trailer.GetInt("XRefStm"); ok && !visited[stm] {
			visited[stm] = true
			if _, err := d.parseXRefStream(stm); err != nil {
				return err
			}
		}

		prev, ok := trailer.GetInt("Prev")
		if !ok {
			return nil
		}
		offset = prev
	}
	return nil
}

func (d *Document) mergeTrailer(trailer Dictionary) {
	if d.Trailer == nil {
		d.Trailer = make(Dictionary, len(trailer))
	}
	for k, v := range trailer {
		if _, exists := d.Trailer[k]; !exists {
			d.Trailer[k] = v
		}
	}
}

func (d *Document) addEntry(objNum int, entry xrefEntry) {
	if _, exists := d.xref[objNum]; !exists {
		d.xref[objNum] = entry
	}
}

// parseXRefTable parses a traditional xref table and returns its trailer
func (d *Document) parseXRefTable(offset int64) (Dictionary, error) {
	lexer := NewLexerFromBytes(d.data)
	lexer.Seek(offset + int64(len("xref")))

	for {
		if lexer.eof() {
			return nil, fmt.Errorf("xref table at %d has no trailer", offset)
		}
		lineStart := lexer.Position()
		line, _ := lexer.ReadLine()
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if bytes.HasPrefix(line, []byte("trailer")) {
			lexer.Seek(lineStart)
			lexer.NextToken()
			break
		}

		// section header: start count
		parts := bytes.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed xref subsection header %q", line)
		}
		start, err1 := strconv.Atoi(string(parts[0]))
		count, err2 := strconv.Atoi(string(parts[1]))
		if err1 != nil || err2 != nil || start < 0 || count < 0 {
			return nil, fmt.Errorf("malformed xref subsection header %q", line)
		}

		for i := 0; i < count; i++ {
			entryLine, _ := lexer.ReadLine()
			// nnnnnnnnnn ggggg n
			fields := bytes.Fields(entryLine)
			if len(fields) < 3 {
				return nil, fmt.Errorf("malformed xref entry %q", entryLine)
			}
			entryOffset, err1 := strconv.ParseInt(string(fields[0]), 10, 64)
			gen, err2 := strconv.Atoi(string(fields[1]))
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("malformed xref entry %q", entryLine)
			}
			inUse := fields[2][0] == 'n'
			if inUse && (entryOffset <= 0 || entryOffset >= int64(len(d.data))) {
				return nil, fmt.Errorf("xref entry for object %d points outside the file", start+i)
			}
			d.addEntry(start+i, xrefEntry{
				Offset:     entryOffset,
				Generation: gen,
				InUse:      inUse,
			})
		}
	}

	parser := NewParser(lexer)
	trailerObj, err := parser.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("parse trailer: %w", err)
	}
	trailer, ok := trailerObj.(Dictionary)
	if !ok {
		return nil, fmt.Errorf("trailer is not a dictionary")
	}
	return trailer, nil
}

// parseXRefStream parses an xref stream and returns its dictionary
func (d *Document) parseXRefStream(offset int64) (Dictionary, error) {
	if offset < 0 || offset >= int64(len(d.data)) {
		return nil, fmt.Errorf("xref stream offset %d out of range", offset)
	}
	parser := d.parserAt(offset, nil)
	_, obj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("parse xref stream: %w", err)
	}

	stream, ok := obj.(Stream)
	if !ok {
		return nil, fmt.Errorf("xref stream expected at offset %d", offset)
	}
	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode xref stream: %w", err)
	}

	wArray, ok := stream.Dictionary.GetArray("W")
	if !ok || len(wArray) != 3 {
		return nil, fmt.Errorf("invalid xref stream W array")
	}
	w := make([]int, 3)
	for i, obj := range wArray {
		n, ok := obj.(Integer)
		if !ok || n < 0 || n > 8 {
			return nil, fmt.Errorf("invalid xref stream W array")
		}
		w[i] = int(n)
	}

	var indices []int
	if indexArray, ok := stream.Dictionary.GetArray("Index"); ok {
		for _, obj := range indexArray {
			if n, ok := obj.(Integer); ok {
				indices = append(indices, int(n))
			}
		}
	} else if size, ok := stream.Dictionary.GetInt("Size"); ok {
		indices = []int{0, int(size)}
	}

	entrySize := w[0] + w[1] + w[2]
	pos := 0
	for i := 0; i+1 < len(indices); i += 2 {
		start, count := indices[i], indices[i+1]
		for j := 0; j < count && pos+entrySize <= len(data); j++ {
			entry := data[pos : pos+entrySize]
			pos += entrySize

			entryType := 1
			if w[0] > 0 {
				entryType = readXRefField(entry, 0, w[0])
			}
			field2 := readXRefField(entry, w[0], w[1])
			field3 := readXRefField(entry, w[0]+w[1], w[2])

			switch entryType {
			case 0:
				d.addEntry(start+j, xrefEntry{})
			case 1:
				d.addEntry(start+j, xrefEntry{Offset: int64(field2), Generation: field3, InUse: true})
			case 2:
				d.addEntry(start+j, xrefEntry{StreamObjNum: field2, Index: field3, InUse: true})
			}
		}
	}

	return stream.Dictionary, nil
}

// readXRefField reads a big-endian field from an xref stream entry
func readXRefField(data []byte, offset, width int) int {
	result := 0
	for i := 0; i < width; i++ {
		result = result<<8 | int(data[offset+i])
	}
	return result
}

var objHeader = regexp.MustCompile(`(\d+)[\x00\t\n\f\r ]+(\d+)[\x00\t\n\f\r ]+obj\b`)

// reconstruct rebuilds the cross-reference data by scanning the body for
// "N G obj" headers. Later definitions of an object number win.
func (d *Document) reconstruct() error {
	d.Reconstructed = true

	for _, m := range objHeader.FindAllSubmatchIndex(d.data, -1) {
		// the match must start a token
		if m[0] > 0 && !isWhitespace(d.data[m[0]-1]) && !isDelimiter(d.data[m[0]-1]) {
			continue
		}
		objNum, err1 := strconv.Atoi(string(d.data[m[2]:m[3]]))
		gen, err2 := strconv.Atoi(string(d.data[m[4]:m[5]]))
		if err1 != nil || err2 != nil {
			continue
		}
		d.xref[objNum] = xrefEntry{Offset: int64(m[0]), Generation: gen, InUse: true}
	}
	if len(d.xref) == 0 {
		return fmt.Errorf("no objects found")
	}

	// members of object streams, unless defined directly
	for _, objNum := range d.objectNumbers() {
		obj, err := d.GetObject(objNum)
		if err != nil {
			continue
		}
		stream, ok := obj.(Stream)
		if !ok {
			continue
		}
		if t, _ := stream.Dictionary.GetName("Type"); t == "ObjStm" {
			stm, err := d.objectStream(objNum)
			if err != nil {
				continue
			}
			for i, member := range stm.objNums {
				d.addEntry(member, xrefEntry{StreamObjNum: objNum, Index: i, InUse: true})
			}
		}
		if t, _ := stream.Dictionary.GetName("Type"); t == "XRef" && d.Trailer == nil {
			d.Trailer = stream.Dictionary
		}
	}

	if idx := bytes.LastIndex(d.data, []byte("trailer")); idx >= 0 {
		parser := NewParserFromBytes(d.data[idx+len("trailer"):])
		if obj, err := parser.ParseObject(); err == nil {
			if trailer, ok := obj.(Dictionary); ok {
				d.Trailer = trailer
			}
		}
	}
	if d.Trailer == nil {
		d.Trailer = make(Dictionary)
	}
	if d.loadRoot() == nil {
		return nil
	}

	for _, objNum := range d.objectNumbers() {
		obj, err := d.GetObject(objNum)
		if err != nil {
			continue
		}
		if dict, ok := obj.(Dictionary); ok {
			if t, _ := dict.GetName("Type"); t == "Catalog" {
				d.Trailer[Name("Root")] = Reference{ObjectNumber: objNum, GenerationNumber: d.xref[objNum].Generation}
				d.Root = dict
				return nil
			}
		}
	}
	return fmt.Errorf("no document catalog found")
}

// objectNumbers returns the in-use object numbers in ascending order
func (d *Document) objectNumbers() []int {
	nums := make([]int, 0, len(d.xref))
	for n, e := range d.xref {
		if e.InUse && n > 0 {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	return nums
}

// IndirectObjects iterates over every in-use indirect object in ascending
// object number. Objects that fail to parse are skipped.
func (d *Document) IndirectObjects() iter.Seq2[Reference, Object] {
	return func(yield func(Reference, Object) bool) {
		for _, objNum := range d.objectNumbers() {
			obj, err := d.GetObject(objNum)
			if err != nil {
				continue
			}
			if _, isNull := obj.(Null); isNull {
				continue
			}
			ref := Reference{ObjectNumber: objNum, GenerationNumber: d.xref[objNum].Generation}
			if !yield(ref, obj) {
				return
			}
		}
	}
}

// ResolveObject resolves an object, following references
func (d *Document) ResolveObject(obj Object) (Object, error) {
	for i := 0; i < maxResolveDepth; i++ {
		ref, ok := obj.(Reference)
		if !ok {
			return obj, nil
		}
		var err error
		obj, err = d.GetObject(ref.ObjectNumber)
		if err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("reference chain too deep")
}

// ResolveDict resolves obj and reports whether it is a dictionary. A stream
// yields its stream dictionary.
func (d *Document) ResolveDict(obj Object) (Dictionary, bool) {
	resolved, err := d.ResolveObject(obj)
	if err != nil {
		return nil, false
	}
	switch v := resolved.(type) {
	case Dictionary:
		return v, true
	case Stream:
		return v.Dictionary, true
	}
	return nil, false
}

// GetObject gets an object by number. It is safe for concurrent use.
func (d *Document) GetObject(objNum int) (Object, error) {
	d.mu.Lock()
	obj, ok := d.objects[objNum]
	d.mu.Unlock()
	if ok {
		return obj, nil
	}

	entry, ok := d.xref[objNum]
	if !ok || !entry.InUse {
		return Null{}, nil
	}

	var err error
	if entry.StreamObjNum > 0 {
		// members of an object stream were decrypted with it
		obj, err = d.getCompressedObject(entry.StreamObjNum, entry.Index)
	} else {
		obj, err = d.getUncompressedObject(objNum, entry.Offset)
		if err == nil && d.security != nil && objNum != d.encryptObj {
			obj, err = d.security.DecryptObject(obj, objNum, entry.Generation)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", objNum, err)
	}

	d.mu.Lock()
	d.objects[objNum] = obj
	d.mu.Unlock()
	return obj, nil
}

// parserAt returns a parser positioned at offset in the document buffer so
// stream payloads alias the buffer.
func (d *Document) parserAt(offset int64, resolver LengthResolver) *Parser {
	lexer := NewLexerFromBytes(d.data)
	lexer.Seek(offset)
	parser := NewParser(lexer)
	parser.SetLengthResolver(resolver)
	return parser
}

// getUncompressedObject reads an uncompressed object
func (d *Document) getUncompressedObject(objNum int, offset int64) (Object, error) {
	if offset < 0 || offset >= int64(len(d.data)) {
		return nil, fmt.Errorf("offset %d out of range", offset)
	}
	parser := d.parserAt(offset, func(ref Reference) (int64, bool) {
		if ref.ObjectNumber == objNum {
			return 0, false
		}
		return d.resolveLength(ref)
	})
	ref, obj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, err
	}
	if ref.ObjectNumber != objNum {
		return nil, fmt.Errorf("xref points at object %d", ref.ObjectNumber)
	}
	return obj, nil
}

// resolveLength reads an indirect /Length without recursing into streams
func (d *Document) resolveLength(ref Reference) (int64, bool) {
	entry, ok := d.xref[ref.ObjectNumber]
	if !ok || !entry.InUse {
		return 0, false
	}
	var obj Object
	if entry.StreamObjNum > 0 {
		var err error
		if obj, err = d.GetObject(ref.ObjectNumber); err != nil {
			return 0, false
		}
	} else {
		if entry.Offset < 0 || entry.Offset >= int64(len(d.data)) {
			return 0, false
		}
		_, parsed, err := d.parserAt(entry.Offset, nil).ParseIndirectObject()
		if err != nil {
			return 0, false
		}
		obj = parsed
	}
	n, ok := obj.(Integer)
	return int64(n), ok && n >= 0
}

// objectStream returns the decoded object stream objNum, parsing its
// header on first use.
func (d *Document) objectStream(objNum int) (*objectStream, error) {
	d.mu.Lock()
	stm, ok := d.objStreams[objNum]
	d.mu.Unlock()
	if ok {
		return stm, nil
	}

	streamObj, err := d.GetObject(objNum)
	if err != nil {
		return nil, err
	}
	stream, ok := streamObj.(Stream)
	if !ok {
		return nil, fmt.Errorf("object stream %d is not a stream", objNum)
	}
	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode object stream %d: %w", objNum, err)
	}

	first, ok := stream.Dictionary.GetInt("First")
	if !ok || first < 0 || first > int64(len(data)) {
		return nil, fmt.Errorf("object stream %d has invalid First", objNum)
	}
	n, ok := stream.Dictionary.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream %d has invalid N", objNum)
	}

	stm = &objectStream{data: data, first: first}
	headerParser := NewParserFromBytes(data[:first])
	for i := int64(0); i < n; i++ {
		numObj, err1 := headerParser.ParseObject()
		offObj, err2 := headerParser.ParseObject()
		if err1 != nil || err2 != nil {
			break
		}
		num, ok1 := numObj.(Integer)
		off, ok2 := offObj.(Integer)
		if !ok1 || !ok2 {
			break
		}
		stm.objNums = append(stm.objNums, int(num))
		stm.offsets = append(stm.offsets, int64(off))
	}

	d.mu.Lock()
	d.objStreams[objNum] = stm
	d.mu.Unlock()
	return stm, nil
}

// getCompressedObject reads a compressed object from an object stream
func (d *Document) getCompressedObject(streamObjNum, index int) (Object, error) {
	stm, err := d.objectStream(streamObjNum)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(stm.offsets) {
		return nil, fmt.Errorf("object index %d out of range", index)
	}

	objOffset := stm.first + stm.offsets[index]
	if objOffset < 0 || objOffset > int64(len(stm.data)) {
		return nil, fmt.Errorf("object offset %d out of range", objOffset)
	}
	return NewParserFromBytes(stm.data[objOffset:]).ParseObject()
}

// parsePages parses the page tree
func (d *Document) parsePages() error {
	pagesRef := d.Root.Get("Pages")
	if pagesRef == nil {
		return fmt.Errorf("missing Pages in catalog")
	}

	pagesObj, err := d.ResolveObject(pagesRef)
	if err != nil {
		return err
	}
	pagesDict, ok := pagesObj.(Dictionary)
	if !ok {
		return fmt.Errorf("Pages is not a dictionary")
	}

	ref, _ := pagesRef.(Reference)
	visited := map[int]bool{ref.ObjectNumber: true}
	return d.parsePagesNode(pagesDict, ref, pageAttrs{}, visited)
}

// pageAttrs holds the inheritable page attributes
type pageAttrs struct {
	resources Dictionary
	mediaBox  Rectangle
	cropBox   *Rectangle
}

// parsePagesNode recursively parses page tree nodes. Inherited attributes
// are passed down; the node dictionaries are not modified.
func (d *Document) parsePagesNode(node Dictionary, ref Reference, inherited pageAttrs, visited map[int]bool) error {
	attrs := inherited
	if res, ok := d.ResolveDict(node.Get("Resources")); ok {
		attrs.resources = res
	}
	if mb, ok := d.rectangle(node.Get("MediaBox")); ok {
		attrs.mediaBox = mb
	}
	if cb, ok := d.rectangle(node.Get("CropBox")); ok {
		attrs.cropBox = &cb
	}

	nodeType, _ := node.GetName("Type")
	kidsObj := node.Get("Kids")
	if nodeType == "Pages" || (nodeType == "" && kidsObj != nil) {
		kidsResolved, err := d.ResolveObject(kidsObj)
		if err != nil {
			return err
		}
		kids, ok := kidsResolved.(Array)
		if !ok {
			return nil
		}

		for _, kidRef := range kids {
			r, isRef := kidRef.(Reference)
			if isRef {
				if visited[r.ObjectNumber] {
					continue
				}
				visited[r.ObjectNumber] = true
			}
			kidDict, ok := d.ResolveDict(kidRef)
			if !ok {
				continue
			}
			if err := d.parsePagesNode(kidDict, r, attrs, visited); err != nil {
				return err
			}
		}
		return nil
	}

	page := &Page{
		doc:        d,
		Dictionary: node,
		Number:     len(d.Pages) + 1,
		Ref:        ref,
		MediaBox:   attrs.mediaBox,
		CropBox:    attrs.mediaBox,
		Resources:  attrs.resources,
	}
	if attrs.cropBox != nil {
		page.CropBox = *attrs.cropBox
	}
	d.Pages = append(d.Pages, page)
	return nil
}

func (d *Document) rectangle(obj Object) (Rectangle, bool) {
	if obj == nil {
		return Rectangle{}, false
	}
	resolved, err := d.ResolveObject(obj)
	if err != nil {
		return Rectangle{}, false
	}
	arr, ok := resolved.(Array)
	if !ok || len(arr) != 4 {
		return Rectangle{}, false
	}
	return Rectangle{
		LLX: objectToFloat(arr[0]),
		LLY: objectToFloat(arr[1]),
		URX: objectToFloat(arr[2]),
		URY: objectToFloat(arr[3]),
	}, true
}

// NumPages returns the number of pages
func (d *Document) NumPages() int {
	return len(d.Pages)
}

// GetPage returns a page by number (1-indexed)
func (d *Document) GetPage(num int) (*Page, error) {
	if num < 1 || num > len(d.Pages) {
		return nil, fmt.Errorf("page %d out of range", num)
	}
	return d.Pages[num-1], nil
}

// Document returns the document the page belongs to
func (p *Page) Document() *Document {
	return p.doc
}

// GetContents returns the page contents as decoded bytes. Streams of a
// content array are joined with a newline.
func (p *Page) GetContents() ([]byte, error) {
	contentsRef := p.Dictionary.Get("Contents")
	if contentsRef == nil {
		return nil, nil
	}

	contentsObj, err := p.doc.ResolveObject(contentsRef)
	if err != nil {
		return nil, err
	}

	switch contents := contentsObj.(type) {
	case Stream:
		return contents.Decode()
	case Array:
		var buf bytes.Buffer
		for _, ref := range contents {
			streamObj, err := p.doc.ResolveObject(ref)
			if err != nil {
				continue
			}
			if stream, ok := streamObj.(Stream); ok {
				data, err := stream.Decode()
				if err != nil {
					continue
				}
				buf.Write(data)
				buf.WriteByte('\n')
			}
		}
		return buf.Bytes(), nil
	case Null:
		return nil, nil
	}

	return nil, fmt.Errorf("invalid Contents type")
}

// Width returns the width of a rectangle
func (r Rectangle) Width() float64 {
	return r.URX - r.LLX
}

// Height returns the height of a rectangle
func (r Rectangle) Height() float64 {
	return r.URY - r.LLY
}

// Close releases the document's buffers
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = nil
	d.objects = nil
	d.objStreams = nil
	d.xref = nil
	return nil
}
