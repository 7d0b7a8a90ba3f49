// Command receipt_ingest scans a drop directory of receipt files, matches
// each file to a payment by the reference prefix in its name
// ("<reference>_anything.ext" or "<reference>.ext"), and records the
// attachment. With --watch it keeps running and picks up new files.
package main

import (
	"flag"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"payledger/models"
	"payledger/pkg/audit"
	"payledger/pkg/dbutil"
	"payledger/pkg/logging"
	"payledger/pkg/receipt"
)

// Global DB handle for helper funcs
var db *gorm.DB

var verbose bool

// preload caches
type preloadState struct {
	receiptsByPath map[string]*models.Receipt // store path -> receipt
	paymentsByRef  map[string]*models.Payment // reference -> payment
	mu             sync.RWMutex
}

func newPreloadState() *preloadState {
	return &preloadState{
		receiptsByPath: make(map[string]*models.Receipt, 1024),
		paymentsByRef:  make(map[string]*models.Payment, 1024),
	}
}

func (ps *preloadState) getReceipt(storePath string) (*models.Receipt, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	r, ok := ps.receiptsByPath[storePath]
	return r, ok
}

func (ps *preloadState) putReceipt(r *models.Receipt) {
	ps.mu.Lock()
	ps.receiptsByPath[r.StorePath] = r
	ps.mu.Unlock()
}

func (ps *preloadState) getPayment(ref string) (*models.Payment, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	p, ok := ps.paymentsByRef[ref]
	return p, ok
}

func (ps *preloadState) putPayment(p *models.Payment) {
	ps.mu.Lock()
	ps.paymentsByRef[p.Reference] = p
	ps.mu.Unlock()
}

func mustInitDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		logging.Fatal("DB_DSN must be set in environment to run this tool")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logging.Fatal("failed to connect to database", zap.Error(err))
	}
	return gdb
}

func main() {
	dirFlag := flag.String("dir", "receipts/incoming", "directory to scan for receipt files")
	storeFlag := flag.String("store", "receipts", "base directory for stored receipts")
	actor := flag.String("actor", "receipt_ingest", "actor name recorded in the audit log")
	dryRun := flag.Bool("dry-run", false, "Skip all DB queries and writes; just list candidate files")
	watch := flag.Bool("watch", false, "Watch directory for new files")
	workers := flag.Int("workers", 0, "Worker pool size (default NumCPU)")
	flag.BoolVar(&verbose, "verbose", false, "Verbose per-file logging")
	flag.Parse()

	logging.Init()
	defer logging.Sync()

	if *dryRun {
		files := listReceiptFiles(*dirFlag)
		logging.Info("dry-run scan", zap.String("dir", *dirFlag), zap.Int("candidates", len(files)))
		for _, f := range files {
			logging.Info("candidate", zap.String("file", f), zap.String("reference", referenceFromFilename(f)))
		}
		return
	}

	db = mustInitDBFromEnv()
	ps := preloadAll()
	logging.Info("preloaded", zap.Int("receipts", len(ps.receiptsByPath)), zap.Int("payments", len(ps.paymentsByRef)))

	ing := &ingester{dir: *dirFlag, store: *storeFlag, actor: *actor, ps: ps}

	files := listReceiptFiles(*dirFlag)
	logging.Info("scanning", zap.Int("files", len(files)), zap.Int("workers", effectiveWorkers(*workers)))
	runWorkerPool(ing, files, effectiveWorkers(*workers))

	if *watch {
		if err := watchDirectory(ing, effectiveWorkers(*workers)); err != nil {
			logging.Fatal("watch failed", zap.Error(err))
		}
	}
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

func logV(msg string, fields ...zap.Field) {
	if verbose {
		logging.Info(msg, fields...)
	}
}

// preloadAll fetches existing receipts and payments to minimize per-file queries.
func preloadAll() *preloadState {
	ps := newPreloadState()
	var recs []models.Receipt
	if err := db.Find(&recs).Error; err == nil {
		for i := range recs {
			r := recs[i]
			ps.receiptsByPath[r.StorePath] = &r
		}
	}
	var pays []models.Payment
	if err := db.Find(&pays).Error; err == nil {
		for i := range pays {
			p := pays[i]
			ps.paymentsByRef[p.Reference] = &p
		}
	}
	return ps
}

func listReceiptFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !receipt.IsSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

// referenceFromFilename extracts the payment reference prefix: everything up
// to the first underscore, or the bare name without extension.
func referenceFromFilename(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if i := strings.IndexByte(base, '_'); i > 0 {
		return base[:i]
	}
	return base
}

type ingester struct {
	dir   string
	store string
	actor string
	ps    *preloadState
}

// process handles a single filename using preloaded maps and minimal queries.
// Idempotent: reruns and concurrent workers converge on one receipt row per
// store path.
func (ing *ingester) process(name string) {
	srcPath := filepath.Join(ing.dir, name)
	storePath := filepath.ToSlash(filepath.Join("payments", name))

	if _, ok := ing.ps.getReceipt(storePath); ok {
		logV("SKIP receipt exists", zap.String("file", name))
		return
	}

	ref := referenceFromFilename(name)
	payment, ok := ing.resolvePayment(ref)
	if !ok {
		ing.recordFailed(name, srcPath, "no payment matches reference "+ref)
		return
	}

	if err := receipt.ShrinkToBudget(srcPath, receipt.MaxStoredBytes); err != nil {
		logging.Warn("downscale failed", zap.String("file", name), zap.Error(err))
	}
	dst := filepath.Join(ing.store, "payments", name)
	if err := receipt.MoveFile(srcPath, dst); err != nil {
		logging.Error("move failed", zap.String("file", name), zap.Error(err))
		return
	}

	ct := receipt.MimeFromExt(name)
	if ct == "" {
		ct = receipt.SniffContentType(dst)
	}
	pid := payment.ID
	rec := models.Receipt{FileName: name, StorePath: storePath, PaymentID: &pid, ContentType: ct}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).
			Update("receipt_status", models.ReceiptAttached).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.ReceiptAttached(&rec, payment.ID, ing.actor))
	})
	if err != nil {
		if dbutil.IsUniqueViolation(err) { // race: another worker recorded it
			var existing models.Receipt
			if err2 := db.Where("store_path = ?", storePath).First(&existing).Error; err2 == nil {
				ing.ps.putReceipt(&existing)
			}
			return
		}
		logging.Error("record receipt failed", zap.String("file", name), zap.Error(err))
		return
	}
	ing.ps.putReceipt(&rec)
	logging.Info("attached", zap.Uint("receipt", rec.ID), zap.Uint("payment", payment.ID), zap.String("file", name))
}

// resolvePayment looks a reference up in the preload map and falls back to
// the database on a miss. Under --watch the preload snapshot goes stale as
// payments are created, so a miss alone must not condemn the file.
func (ing *ingester) resolvePayment(ref string) (*models.Payment, bool) {
	if p, ok := ing.ps.getPayment(ref); ok {
		return p, true
	}
	var p models.Payment
	if err := db.Where("reference = ?", ref).First(&p).Error; err != nil {
		return nil, false
	}
	ing.ps.putPayment(&p)
	return &p, true
}

// recordFailed keeps a row for an unmatched file so an admin can review it.
func (ing *ingester) recordFailed(name, srcPath, reason string) {
	dst := filepath.Join(ing.store, "failed", name)
	storePath := filepath.ToSlash(filepath.Join("failed", name))
	if _, ok := ing.ps.getReceipt(storePath); ok {
		return
	}
	if err := receipt.MoveFile(srcPath, dst); err != nil {
		logging.Error("move to failed dir", zap.String("file", name), zap.Error(err))
		return
	}
	rec := models.Receipt{FileName: name, StorePath: storePath, ContentType: receipt.MimeFromExt(name), Failed: true, FailedReason: reason}
	if err := db.Create(&rec).Error; err != nil {
		if !dbutil.IsUniqueViolation(err) {
			logging.Error("record failed receipt", zap.String("file", name), zap.Error(err))
		}
		return
	}
	ing.ps.putReceipt(&rec)
	logging.Warn("unmatched receipt", zap.String("file", name), zap.String("reason", reason))
}

// worker pool orchestrator
func runWorkerPool(ing *ingester, initial []string, workers int, extraCh ...<-chan string) {
	fileCh := make(chan string, 1024)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range fileCh {
				ing.process(name)
			}
		}()
	}
	go func() {
		for _, f := range initial {
			fileCh <- f
		}
		// also relay from extra channels if provided
		for _, ch := range extraCh {
			go func(c <-chan string) {
				for n := range c {
					fileCh <- n
				}
			}(ch)
		}
		// if no extraCh (scan only) close when done
		if len(extraCh) == 0 {
			close(fileCh)
		}
	}()
	if len(extraCh) == 0 {
		wg.Wait()
	}
}

func watchDirectory(ing *ingester, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(ing.dir); err != nil {
		return err
	}
	logging.Info("watching (debounced)", zap.String("dir", ing.dir))

	fileCh := make(chan string, 256)
	go func() {
		// simple debounce map of pending files
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					close(fileCh)
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create {
					name := filepath.Base(ev.Name)
					if !receipt.IsSupportedExt(name) {
						continue
					}
					pending[name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // stable
						fileCh <- name
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					close(fileCh)
					return
				}
				logging.Warn("watch error", zap.Error(err))
			}
		}
	}()

	go runWorkerPool(ing, nil, workers, fileCh)
	// block forever (Ctrl+C to exit)
	select {}
}
