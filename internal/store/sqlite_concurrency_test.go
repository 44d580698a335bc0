package store

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
)

// setupSQLiteFile はテスト用のファイルSQLiteストアを構築する。
// インメモリDBと異なり複数接続を使うため、同時実行時のロック競合を再現できる。
func setupSQLiteFile(t *testing.T) *SQLStore {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "marketplace.db") + "?_pragma=journal_mode(WAL)"
	s, err := OpenSQLite(t.Context(), dsn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("ファイルSQLiteの作成に失敗: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// runConcurrently は n 個のゴルーチンで fn を同時に実行し、返されたエラーを集める。
func runConcurrently(n int, fn func(i int) error) []error {
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, n)
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}()
	}
	close(start)
	wg.Wait()
	return errs
}

// TestSQLiteFileConcurrentBids は同じ入札が同時に送られても1件しか保存されないことを検証する。
func TestSQLiteFileConcurrentBids(t *testing.T) {
	t.Parallel()

	s := setupSQLiteFile(t)
	jobID := mustInsertJob(t, s, newJob("Job", "Web Development", "2025-01-01", "owner@x.com"))

	const n = 20
	errs := runConcurrently(n, func(int) error {
		_, err := s.InsertBid(t.Context(), Document{
			"email":  "a@x.com",
			"jobId":  jobID,
			"buyer":  "owner@x.com",
			"status": "Pending",
		})
		return err
	})

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicateBid):
			dup++
		default:
			t.Errorf("InsertBid()で想定外のエラーが発生: %v", err)
		}
	}
	if ok != 1 || dup != n-1 {
		t.Errorf("成功 = %d, 重複 = %d, want 1, %d", ok, dup, n-1)
	}

	job, err := s.GetJob(t.Context(), jobID)
	if err != nil {
		t.Fatalf("GetJob()でエラーが発生: %v", err)
	}
	if job[FieldBidCount] != int64(1) {
		t.Errorf("bid_count = %v, want 1", job[FieldBidCount])
	}
}

// TestSQLiteFileConcurrentUpdates は読み取り後に書き込む更新が同時に実行されても失敗しないことを検証する。
func TestSQLiteFileConcurrentUpdates(t *testing.T) {
	t.Parallel()

	t.Run("同じジョブへの同時アップサート", func(t *testing.T) {
		t.Parallel()
		s := setupSQLiteFile(t)
		jobID := mustInsertJob(t, s, newJob("Job", "Web Development", "2025-01-01", "owner@x.com"))

		errs := runConcurrently(20, func(i int) error {
			_, err := s.UpsertJob(t.Context(), jobID, Document{"title": fmt.Sprintf("Job %d", i)})
			return err
		})
		for _, err := range errs {
			if err != nil {
				t.Errorf("UpsertJob()でエラーが発生: %v", err)
			}
		}
	})

	t.Run("別々の行へのアップサートとステータス更新", func(t *testing.T) {
		t.Parallel()
		s := setupSQLiteFile(t)

		const n = 10
		jobIDs := make([]string, n)
		bidIDs := make([]string, n)
		for i := range n {
			jobIDs[i] = mustInsertJob(t, s, newJob(fmt.Sprintf("Job %d", i), "Web Development", "2025-01-01", "owner@x.com"))
			id, err := s.InsertBid(t.Context(), Document{
				"email": fmt.Sprintf("bidder%d@x.com", i),
				"jobId": jobIDs[i],
				"buyer": "owner@x.com",
			})
			if err != nil {
				t.Fatalf("InsertBid()でエラーが発生: %v", err)
			}
			bidIDs[i] = id
		}

		errs := runConcurrently(2*n, func(i int) error {
			if i%2 == 0 {
				_, err := s.UpsertJob(t.Context(), jobIDs[i/2], Document{"title": "Updated"})
				return err
			}
			_, err := s.UpdateBidStatus(t.Context(), bidIDs[i/2], "In Progress")
			return err
		})
		for _, err := range errs {
			if err != nil {
				t.Errorf("同時更新でエラーが発生: %v", err)
			}
		}

		for _, id := range bidIDs {
			bid, err := s.GetBid(t.Context(), id)
			if err != nil {
				t.Fatalf("GetBid()でエラーが発生: %v", err)
			}
			if bid[FieldStatus] != "In Progress" {
				t.Errorf("bid %s の status = %v, want In Progress", id, bid[FieldStatus])
			}
		}
	})
}

// TestFileDSN はファイルDSNへの既定パラメータの付与を検証する。
func TestFileDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "パラメータなし",
			in:   "marketplace.db",
			want: "marketplace.db?_txlock=immediate&_pragma=busy_timeout(5000)",
		},
		{
			name: "既存のパラメータに追加",
			in:   "file:marketplace.db?_pragma=journal_mode(WAL)",
			want: "file:marketplace.db?_pragma=journal_mode(WAL)&_txlock=immediate&_pragma=busy_timeout(5000)",
		},
		{
			name: "指定済みの値は上書きしない",
			in:   "file:marketplace.db?_txlock=exclusive&_pragma=busy_timeout(1000)",
			want: "file:marketplace.db?_txlock=exclusive&_pragma=busy_timeout(1000)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := fileDSN(tt.in); got != tt.want {
				t.Errorf("fileDSN(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
