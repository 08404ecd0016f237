package images

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/novvoo/go-pdfimages/pkg/render"
)

// fakePage serves pixel objects from a map. Names in async are delivered
// through the callback, everything else only synchronously.
type fakePage struct {
	number int
	ops    []render.Op
	async  map[string]*render.PixelObject
	sync   map[string]*render.PixelObject
}

func (p *fakePage) Number() int                        { return p.number }
func (p *fakePage) OperatorList() ([]render.Op, error) { return p.ops, nil }

func (p *fakePage) PixelObject(name string, cb func(*render.PixelObject)) {
	if obj, ok := p.async[name]; ok {
		go cb(obj)
	}
}

func (p *fakePage) PixelObjectSync(name string) (*render.PixelObject, bool) {
	obj, ok := p.sync[name]
	return obj, ok
}

type fakeSource struct {
	pages map[int]render.Page
	count int
}

func (s *fakeSource) NumPages() int { return s.count }

func (s *fakeSource) Page(n int) (render.Page, error) {
	if p, ok := s.pages[n]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("page %d is broken", n)
}

func paintOp(name string) render.Op {
	return render.Op{Code: render.OpPaintImageXObject, Operator: "Do", Args: []any{name, 1, 1}}
}

func newFallback(timeout time.Duration) *FallbackExtractor {
	return NewFallbackExtractor(FallbackOptions{AsyncTimeout: timeout}, NewPlaceholderGenerator(PlaceholderOptions{}), zerolog.Nop())
}

func TestFallbackRetrieve(t *testing.T) {
	page := &fakePage{
		number: 2,
		ops: []render.Op{
			paintOp("img_a"),
			{Code: render.OpOther, Operator: "q"},
			paintOp("img_b"),
			{Code: render.OpPaintImageXObjectRepeat, Args: []any{"img_a", 1, 1}},
			{Code: render.OpPaintJpegXObject, Args: []any{"img_c", 1, 1}},
			paintOp("img_d"),
			paintOp("img_e"),
		},
		async: map[string]*render.PixelObject{
			"img_a": {Width: 1, Height: 2, Data: []byte{1, 2, 3, 4, 5, 6}},
		},
		sync: map[string]*render.PixelObject{
			"img_b": {Width: 9, Height: 9, Bitmap: &render.Bitmap{Width: 1, Height: 1, Data: []byte{7, 8, 9}}},
			"img_c": {Width: 1, Height: 1, Bitmap: &render.Bitmap{Data: []byte{10, 11, 12}}},
			"img_d": {Width: 2, Height: 2, Data: []byte{1, 2, 3}},
		},
	}
	src := &fakeSource{pages: map[int]render.Page{2: page}, count: 3}

	records, err := newFallback(20*time.Millisecond).Retrieve(context.Background(), src)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	type summary struct {
		Name   string
		Page   int
		Status Status
		Pixels []byte
	}
	var got []summary
	for _, rec := range records {
		s := summary{Name: rec.SourceName, Page: rec.SourcePage, Status: rec.Status}
		if !rec.IsPlaceholder() {
			s.Pixels = rec.Pixels
		}
		if rec.Strategy != StrategyFallback {
			t.Errorf("%s strategy = %q", rec.SourceName, rec.Strategy)
		}
		got = append(got, s)
	}

	want := []summary{
		{"img_a", 2, StatusDecoded, []byte{1, 2, 3, 255, 4, 5, 6, 255}},
		{"img_b", 2, StatusDecoded, []byte{7, 8, 9, 255}},
		{"img_c", 2, StatusDecoded, []byte{10, 11, 12, 255}},
		{"img_d", 2, StatusPlaceholder, nil},
		{"img_e", 2, StatusPlaceholder, nil},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if reason := records[4].Reason; reason != "Image not available" {
		t.Errorf("missing image reason = %q", reason)
	}
}

func TestFallbackPageRange(t *testing.T) {
	pages := make(map[int]render.Page)
	for n := 1; n <= 4; n++ {
		name := fmt.Sprintf("img_p%d", n)
		pages[n] = &fakePage{
			number: n,
			ops:    []render.Op{paintOp(name)},
			sync:   map[string]*render.PixelObject{name: {Width: 1, Height: 1, Data: []byte{1, 1, 1}}},
		}
	}
	f := NewFallbackExtractor(FallbackOptions{AsyncTimeout: time.Millisecond, FirstPage: 2, LastPage: 3},
		NewPlaceholderGenerator(PlaceholderOptions{}), zerolog.Nop())

	records, err := f.Retrieve(context.Background(), &fakeSource{pages: pages, count: 4})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	var names []string
	for _, rec := range records {
		names = append(names, rec.SourceName)
	}
	if diff := cmp.Diff([]string{"img_p2", "img_p3"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestFallbackCancelled(t *testing.T) {
	page := &fakePage{number: 1, ops: []render.Op{paintOp("img_a")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records, err := newFallback(time.Hour).Retrieve(ctx, &fakeSource{pages: map[int]render.Page{1: page}, count: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, expected context.Canceled", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records", len(records))
	}
}

func TestFallbackRenderer(t *testing.T) {
	doc := openDoc(t, scenarioPDF())
	records, err := newFallback(time.Second).Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, expected 2", len(records))
	}

	// the renderer does not expose SMask linkage, so alpha stays opaque
	want := map[string][]byte{
		"img_p0_1": {10, 10, 10, 255, 20, 20, 20, 255, 30, 30, 30, 255, 40, 40, 40, 255},
		"img_p0_2": {1, 2, 3, 255, 4, 5, 6, 255},
	}
	for _, rec := range records {
		if diff := cmp.Diff(want[rec.SourceName], rec.Pixels); diff != "" {
			t.Errorf("%s pixels mismatch (-want +got):\n%s", rec.SourceName, diff)
		}
		if rec.SourcePage != 1 {
			t.Errorf("%s page = %d", rec.SourceName, rec.SourcePage)
		}
	}
}

func TestFromPixelObject(t *testing.T) {
	tests := []struct {
		name    string
		obj     *render.PixelObject
		want    []byte
		wantErr bool
	}{
		{name: "data", obj: &render.PixelObject{Width: 1, Height: 1, Data: []byte{1, 2, 3}}, want: []byte{1, 2, 3, 255}},
		{name: "bitmap dims", obj: &render.PixelObject{Bitmap: &render.Bitmap{Width: 1, Height: 1, Data: []byte{4, 5, 6}}}, want: []byte{4, 5, 6, 255}},
		{name: "empty", obj: &render.PixelObject{Width: 1, Height: 1}, wantErr: true},
		{name: "zero size", obj: &render.PixelObject{Data: []byte{1, 2, 3}}, wantErr: true},
		{name: "short", obj: &render.PixelObject{Width: 3, Height: 1, Data: []byte{1, 2, 3}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := FromPixelObject(tt.obj, "img", 1)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("FromPixelObject failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, rec.Pixels); diff != "" {
				t.Errorf("pixels mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
