package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "stockbot/pkg/logx"
)

func TestDrivers(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"file", "sqlite"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "nested", "journal.db")
			st, err := Open(Config{Driver: driver, Path: path}, logx.Nop())
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer st.Close()

			ctx := context.Background()
			base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
			for i, kind := range []string{"command.applied", "stock.in", "stock.out"} {
				e := Entry{At: base.Add(time.Duration(i) * time.Minute), Kind: kind, Subject: "milk", ChatID: int64(i)}
				if err := st.Append(ctx, e); err != nil {
					t.Fatalf("Append: %v", err)
				}
			}

			got, err := st.Recent(ctx, 2)
			if err != nil {
				t.Fatalf("Recent: %v", err)
			}
			if len(got) != 2 || got[0].Kind != "stock.in" || got[1].Kind != "stock.out" {
				t.Fatalf("recent = %+v", got)
			}
			if got[1].ChatID != 2 || got[1].Subject != "milk" || !got[1].At.Equal(base.Add(2*time.Minute)) {
				t.Fatalf("entry = %+v", got[1])
			}
		})
	}
}

func TestOpenDisabledAndUnknown(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.Append(context.Background(), Entry{Kind: "x"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := Open(Config{Driver: "redis", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("expected unknown driver error")
	}
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("expected missing path error")
	}
}
