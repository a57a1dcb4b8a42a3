// Package ingest implements the process pipeline: scanning source_files/ for
// incoming media, resolving metadata, normalizing filenames, deriving native
// variants, and recording everything in the inventory ledgers.
package ingest

import (
	"context"
	"fmt"
	"image"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/creativeflow/creative-int/internal/config"
	"github.com/creativeflow/creative-int/internal/inventory"
	"github.com/creativeflow/creative-int/internal/logging"
	"github.com/creativeflow/creative-int/internal/models"
	"github.com/creativeflow/creative-int/internal/naming"
	"github.com/creativeflow/creative-int/internal/progress"
	"github.com/creativeflow/creative-int/internal/transform"
)

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".webm": true,
	".mkv": true, ".flv": true, ".wmv": true,
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true,
}

// Short-video detection: portrait 9:16 clips under this duration are a
// distinct placement format on the platform.
const (
	shortVideoMaxSeconds    = 23.0
	portraitAspect          = 9.0 / 16.0
	portraitAspectTolerance = 0.01
)

// Hard ceiling the platform enforces on native thumbnail uploads.
const maxNativeImageBytes = 300_000

// Prompter supplies folder defaults for source folders the defaults store
// does not know yet. A nil prompter disables interactive resolution.
type Prompter interface {
	FolderDefaults(folder string) (naming.FolderDefaults, error)
}

// Options configure one process run.
type Options struct {
	DryRun         bool // report what would happen without touching files
	ForceReprocess bool // reprocess files already present in the master ledger
	ForceNative    bool // derive native variants for every video, not just source_files/native/
}

// Summary aggregates one process run.
type Summary struct {
	Processed int
	Skipped   int
	Failed    int
	ByType    map[string]int
}

// Processor ingests source files into the tracked inventory.
type Processor struct {
	paths     *config.Paths
	ledger    *inventory.Ledger
	ids       *inventory.IDStore
	defaults  *naming.DefaultsStore
	converter *transform.Converter
	prompter  Prompter
	log       *logging.Logger
	reporter  progress.Reporter
	opts      Options
}

// NewProcessor wires an ingest processor. prompter and reporter may be nil.
func NewProcessor(paths *config.Paths, ledger *inventory.Ledger, ids *inventory.IDStore, defaults *naming.DefaultsStore, converter *transform.Converter, prompter Prompter, log *logging.Logger, reporter progress.Reporter, opts Options) *Processor {
	if reporter == nil {
		reporter = progress.NewNoOpProgress()
	}
	return &Processor{
		paths:     paths,
		ledger:    ledger,
		ids:       ids,
		defaults:  defaults,
		converter: converter,
		prompter:  prompter,
		log:       log,
		reporter:  reporter,
		opts:      opts,
	}
}

// Run processes every media file under source_files/ and writes the session
// and master ledgers. The session ledger is replaced with this run's records;
// the master ledger is appended.
func (p *Processor) Run(ctx context.Context) (*Summary, error) {
	if _, err := os.Stat(p.paths.SourceDir); err != nil {
		return nil, fmt.Errorf("source directory %s does not exist", p.paths.SourceDir)
	}

	nativeMode := p.nativeFolderExists()
	if err := p.paths.EnsureUploadDirs(nativeMode || p.opts.ForceNative); err != nil {
		return nil, err
	}

	processed, err := p.ledger.SourcePaths()
	if err != nil {
		return nil, err
	}

	files, err := p.scanSourceFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		p.log.Info().Msg("No media files found in source_files/")
		return &Summary{ByType: map[string]int{}}, nil
	}
	p.log.Infof("Found %d media file(s) to examine", len(files))
	if p.opts.ForceNative {
		p.log.Info().Msg("Native mode forced: every video gets a native variant")
	} else if nativeMode {
		p.log.Info().Msg("Native folder detected: files under source_files/native/ get native variants")
	}

	summary := &Summary{ByType: map[string]int{}}
	var records []inventory.Record

	p.reporter.Start(int64(len(files)), "Processing files")
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		recs, err := p.processFile(ctx, path, processed)
		if err != nil {
			p.log.Error().Err(err).Str("file", filepath.Base(path)).Msg("Failed to process file")
			summary.Failed++
		} else if len(recs) == 0 {
			summary.Skipped++
		} else {
			summary.Processed++
			for _, r := range recs {
				summary.ByType[r.CreativeType]++
			}
			records = append(records, recs...)
		}
		p.reporter.Increment()
	}
	p.reporter.Finish()

	if !p.opts.DryRun {
		if err := p.persist(records); err != nil {
			return summary, err
		}
		p.cleanupEmptyFolders()
	}

	p.logSummary(summary)
	return summary, nil
}

func (p *Processor) persist(records []inventory.Record) error {
	if err := p.ledger.WriteSession(records); err != nil {
		return fmt.Errorf("failed to write session ledger: %w", err)
	}
	if len(records) > 0 {
		if err := p.ledger.AppendMaster(records); err != nil {
			return fmt.Errorf("failed to append master ledger: %w", err)
		}
	}
	if err := p.ids.Save(); err != nil {
		return fmt.Errorf("failed to save processed ids: %w", err)
	}
	if err := p.defaults.Save(); err != nil {
		return fmt.Errorf("failed to save metadata defaults: %w", err)
	}
	return nil
}

// scanSourceFiles collects media files under source_files/, sorted for
// deterministic processing order. Hidden files are ignored.
func (p *Processor) scanSourceFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(p.paths.SourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != p.paths.SourceDir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if videoExtensions[ext] || imageExtensions[ext] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", p.paths.SourceDir, err)
	}
	sort.Strings(files)
	return files, nil
}

// processFile ingests one file: metadata, classification, rename into
// uploaded/, plus the native pair when applicable. Returns the ledger rows
// produced, nil when the file was skipped.
func (p *Processor) processFile(ctx context.Context, path string, processed map[string]bool) ([]inventory.Record, error) {
	relPath, err := filepath.Rel(p.paths.Base, path)
	if err != nil {
		relPath = path
	}

	if !p.opts.ForceReprocess && processed[relPath] {
		p.log.Debugf("Skipping %s: already processed", filepath.Base(path))
		return nil, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	isVideo := videoExtensions[ext]

	uniqueID, err := p.ids.Generate()
	if err != nil {
		return nil, err
	}

	info, err := p.mediaInfo(ctx, path, isVideo)
	if err != nil {
		return nil, err
	}

	md, notes := p.resolveMetadata(path)
	creativeType := classify(isVideo, info)
	wantNative := isVideo && (p.opts.ForceNative || p.isNativeSource(path))

	duration := 0.0
	if isVideo {
		duration = info.Duration
	}
	newFilename := naming.BuildFilename(uniqueID, md, ext, duration, wantNative)

	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	records := []inventory.Record{{
		UniqueID:         uniqueID,
		OriginalFilename: filepath.Base(path),
		NewFilename:      newFilename,
		CreatorName:      md.CreatorName,
		Language:         md.Language,
		Category:         md.Category,
		ContentType:      md.ContentType,
		CreativeType:     creativeType,
		DurationSeconds:  info.Duration,
		AspectRatio:      aspectLabel(info.Width, info.Height),
		WidthPx:          info.Width,
		HeightPx:         info.Height,
		FileSizeMB:       sizeMB(fileInfo.Size()),
		FileFormat:       strings.TrimPrefix(ext, "."),
		DateProcessed:    time.Now().Format("2006-01-02"),
		SourcePath:       relPath,
		Notes:            notes,
	}}

	if wantNative {
		nativeRecords, err := p.deriveNativePair(ctx, path, uniqueID, md, relPath)
		if err != nil {
			return nil, err
		}
		records = append(records, nativeRecords...)
	}

	if p.opts.DryRun {
		p.log.Infof("[DRY RUN] Would move %s -> %s (%s)", filepath.Base(path), newFilename, creativeType)
		return records, nil
	}

	_, destName, err := p.moveToUploaded(path, newFilename, creativeType)
	if err != nil {
		return nil, err
	}
	records[0].NewFilename = destName

	p.log.Info().
		Str("id", uniqueID).
		Str("type", creativeType).
		Str("file", destName).
		Msg("Processed")
	return records, nil
}

// mediaInfo probes technical metadata: ffprobe for videos, in-process decode
// for images.
func (p *Processor) mediaInfo(ctx context.Context, path string, isVideo bool) (transform.MediaInfo, error) {
	if isVideo {
		return p.converter.Probe(ctx, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return transform.MediaInfo{}, err
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return transform.MediaInfo{}, fmt.Errorf("unreadable image %s: %w", filepath.Base(path), err)
	}
	return transform.MediaInfo{Width: cfg.Width, Height: cfg.Height}, nil
}

// resolveMetadata applies the resolution priority: structured filename, then
// folder defaults, then an interactive prompt, then the bare folder name with
// a manual-review note.
func (p *Processor) resolveMetadata(path string) (md models.Metadata, notes string) {
	if parsed, ok := naming.ParseStructured(filepath.Base(path)); ok {
		return parsed, "Pattern 1 (Structured)"
	}

	folder := p.folderCategory(path)
	if folder == "" {
		return models.Metadata{}, "NEEDS MANUAL REVIEW"
	}

	if defaults, ok := p.defaults.Lookup(folder); ok {
		return defaults.Metadata(), "Pattern 2 (Simple), defaults applied"
	}

	if p.prompter != nil && !p.opts.DryRun {
		defaults, err := p.prompter.FolderDefaults(folder)
		if err == nil {
			p.defaults.Add(folder, defaults)
			return defaults.Metadata(), "Pattern 2 (Simple), interactive defaults added"
		}
		p.log.Warnf("Prompt for folder %s failed: %v", folder, err)
	}

	return models.Metadata{Category: folder}, "NEEDS MANUAL REVIEW"
}

// folderCategory returns the parent folder name, empty for files directly in
// source_files/. The native folder itself carries no category meaning.
func (p *Processor) folderCategory(path string) string {
	parent := filepath.Dir(path)
	if parent == p.paths.SourceDir {
		return ""
	}
	name := filepath.Base(parent)
	if name == "native" && parent == filepath.Join(p.paths.SourceDir, "native") {
		return ""
	}
	return name
}

func (p *Processor) nativeFolderExists() bool {
	info, err := os.Stat(filepath.Join(p.paths.SourceDir, "native"))
	return err == nil && info.IsDir()
}

func (p *Processor) isNativeSource(path string) bool {
	rel, err := filepath.Rel(filepath.Join(p.paths.SourceDir, "native"), path)
	return err == nil && !strings.HasPrefix(rel, "..")
}

// deriveNativePair converts a source video into the native video + thumbnail
// pair and returns their ledger rows. Both rows share the base id as pair id
// and carry -VID/-IMG suffixed unique ids.
func (p *Processor) deriveNativePair(ctx context.Context, srcPath, baseID string, md models.Metadata, relPath string) ([]inventory.Record, error) {
	videoName := naming.BuildNativeFilename(baseID, md, "VID", transform.NativeMaxDuration)
	imageName := naming.BuildNativeFilename(baseID, md, "IMG", 0)
	videoPath := filepath.Join(p.paths.NativeVideoDir, videoName)
	imagePath := filepath.Join(p.paths.NativeImageDir, imageName)

	achieved := transform.NativeMaxDuration
	var videoSize, imageSize int64
	if !p.opts.DryRun {
		var err error
		achieved, err = p.converter.ConvertNative(ctx, srcPath, videoPath, imagePath)
		if err != nil {
			return nil, err
		}
		if err := p.enforceThumbnailBudget(imagePath); err != nil {
			return nil, err
		}
		if info, err := os.Stat(videoPath); err == nil {
			videoSize = info.Size()
		}
		if info, err := os.Stat(imagePath); err == nil {
			imageSize = info.Size()
		}
	}

	now := time.Now().Format("2006-01-02")
	return []inventory.Record{
		{
			UniqueID:         baseID + "-VID",
			OriginalFilename: filepath.Base(srcPath),
			NewFilename:      videoName,
			CreatorName:      md.CreatorName,
			Language:         md.Language,
			Category:         md.Category,
			ContentType:      md.ContentType,
			CreativeType:     "native_video",
			DurationSeconds:  achieved,
			AspectRatio:      "16:9",
			WidthPx:          transform.NativeWidth,
			HeightPx:         transform.NativeHeight,
			FileSizeMB:       sizeMB(videoSize),
			FileFormat:       "mp4",
			DateProcessed:    now,
			SourcePath:       relPath,
			Notes:            "Native video conversion",
			NativePairID:     baseID,
		},
		{
			UniqueID:         baseID + "-IMG",
			OriginalFilename: filepath.Base(srcPath),
			NewFilename:      imageName,
			CreatorName:      md.CreatorName,
			Language:         md.Language,
			Category:         md.Category,
			ContentType:      md.ContentType,
			CreativeType:     "native_image",
			AspectRatio:      "16:9",
			WidthPx:          transform.NativeWidth,
			HeightPx:         transform.NativeHeight,
			FileSizeMB:       sizeMB(imageSize),
			FileFormat:       "png",
			DateProcessed:    now,
			SourcePath:       relPath,
			Notes:            "Native image thumbnail",
			NativePairID:     baseID,
		},
	}, nil
}

// enforceThumbnailBudget recompresses an extracted thumbnail that exceeds
// the platform's native image size ceiling.
func (p *Processor) enforceThumbnailBudget(imagePath string) error {
	info, err := os.Stat(imagePath)
	if err != nil {
		return err
	}
	if info.Size() <= maxNativeImageBytes {
		return nil
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return err
	}
	compressed, err := transform.CompressThumbnail(data, maxNativeImageBytes)
	if err != nil {
		return fmt.Errorf("thumbnail %s: %w", filepath.Base(imagePath), err)
	}
	p.log.Debugf("Compressed thumbnail %s from %d to %d bytes", filepath.Base(imagePath), len(data), len(compressed))
	return os.WriteFile(imagePath, compressed, 0o644)
}

// moveToUploaded renames the source file into its kind directory, suffixing
// _dupN when the target name is taken.
func (p *Processor) moveToUploaded(srcPath, filename, creativeType string) (string, string, error) {
	dir := p.paths.KindDir(creativeType)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}

	name := filename
	dest := filepath.Join(dir, name)
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			break
		}
		name = fmt.Sprintf("%s_dup%d%s", stem, counter, ext)
		dest = filepath.Join(dir, name)
	}

	if err := os.Rename(srcPath, dest); err != nil {
		return "", "", fmt.Errorf("failed to move %s: %w", filepath.Base(srcPath), err)
	}
	return dest, name, nil
}

// cleanupEmptyFolders removes empty subdirectories left behind in
// source_files/ after processed files were moved out.
func (p *Processor) cleanupEmptyFolders() {
	var dirs []string
	filepath.WalkDir(p.paths.SourceDir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() && path != p.paths.SourceDir {
			dirs = append(dirs, path)
		}
		return nil
	})

	// Deepest first so nested empties collapse upward.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err == nil && len(entries) == 0 {
			if err := os.Remove(dir); err == nil {
				p.log.Debugf("Removed empty source folder %s", dir)
			}
		}
	}
}

func (p *Processor) logSummary(s *Summary) {
	p.log.Infof("Process run complete: %d processed, %d skipped, %d failed", s.Processed, s.Skipped, s.Failed)
	types := make([]string, 0, len(s.ByType))
	for t := range s.ByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		p.log.Infof("  %s: %d", t, s.ByType[t])
	}
}

// classify buckets a file into its creative type. Portrait clips under the
// short-video duration are a distinct placement format.
func classify(isVideo bool, info transform.MediaInfo) string {
	if !isVideo {
		return "image"
	}
	if info.Duration < shortVideoMaxSeconds &&
		math.Abs(info.AspectRatio()-portraitAspect) < portraitAspectTolerance {
		return "short_video"
	}
	return "video"
}

// aspectLabel reduces pixel dimensions to a simplified W:H label.
func aspectLabel(width, height int) string {
	if width == 0 || height == 0 {
		return "Unknown"
	}
	d := gcd(width, height)
	return fmt.Sprintf("%d:%d", width/d, height/d)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func sizeMB(bytes int64) float64 {
	return math.Round(float64(bytes)/(1024*1024)*100) / 100
}
