// Package persistence contains the default [domain.Persistence] implementation.
package persistence

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/dolmen-go/contextio"
	"github.com/webbestmaster/nedb/adapter/comparer"
	"github.com/webbestmaster/nedb/adapter/data"
	"github.com/webbestmaster/nedb/adapter/decoder"
	"github.com/webbestmaster/nedb/adapter/deserializer"
	"github.com/webbestmaster/nedb/adapter/hasher"
	"github.com/webbestmaster/nedb/adapter/serializer"
	"github.com/webbestmaster/nedb/adapter/storage"
	"github.com/webbestmaster/nedb/domain"
	"github.com/webbestmaster/nedb/pkg/ctxsync"
	"github.com/webbestmaster/nedb/pkg/uncomparable"
)

const (
	DefaultDirMode  os.FileMode = 0o755
	DefaultFileMode os.FileMode = 0o644
)

type documentsByID = *uncomparable.Map[domain.Document]

// Persistence implements [domain.Persistence]: append-log writes plus
// crash-safe, full-file compaction of the datastore's current state.
type Persistence struct {
	inMemoryOnly          bool
	filename              string
	corruptAlertThreshold float64
	fileMode              os.FileMode
	dirMode               os.FileMode
	serializer            domain.Serializer
	deserializer          domain.Deserializer
	compactionDone        *ctxsync.Cond
	storage               domain.Storage
	decoder               domain.Decoder
	cmp                   domain.Comparer
	newDocument           func(any) (domain.Document, error)
	hash                  domain.Hasher
}

// NewPersistence returns a new implementation of [domain.Persistence].
func NewPersistence(options ...Option) (domain.Persistence, error) {
	p := Persistence{
		filename:              "",
		cmp:                   comparer.NewComparer(),
		inMemoryOnly:          false,
		corruptAlertThreshold: 0.1,
		fileMode:              DefaultFileMode,
		dirMode:               DefaultDirMode,
		storage:               storage.NewStorage(),
		decoder:               decoder.NewDecoder(),
		newDocument:           data.NewDocument,
		hash:                  hasher.NewHasher(),
		compactionDone:        ctxsync.NewCond(&sync.Mutex{}),
	}
	for _, option := range options {
		option(&p)
	}
	if p.deserializer == nil {
		p.deserializer = deserializer.NewDeserializer(p.decoder)
	}
	if p.serializer == nil {
		p.serializer = serializer.NewSerializer(p.cmp, p.newDocument)
	}

	if !p.inMemoryOnly && p.filename != "" && strings.HasSuffix(p.filename, "~") {
		return nil, domain.ErrDatafileName{Name: p.filename, Reason: "cannot end with '~', reserved for backup files"}
	}

	return &p, nil
}

// SetCorruptAlertThreshold implements [domain.Persistence].
func (p *Persistence) SetCorruptAlertThreshold(v float64) {
	p.corruptAlertThreshold = v
}

// PersistNewState implements [domain.Persistence].
func (p *Persistence) PersistNewState(ctx context.Context, newDocs ...domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.inMemoryOnly {
		return nil
	}

	buf := new(bytes.Buffer)
	wr := contextio.NewWriter(ctx, buf)

	for _, doc := range newDocs {
		encoded, err := p.serializer.Serialize(ctx, doc)
		if err != nil {
			return err
		}
		if _, err := wr.Write(append(encoded, '\n')); err != nil {
			return err
		}
	}
	if buf.Len() == 0 {
		return nil
	}

	_, err := p.storage.AppendFile(p.filename, p.fileMode, buf.Bytes())
	return err
}

// TreatRawStream implements [domain.Persistence]: it replays every append-
// log line, folding document upserts/deletes by _id and index
// creation/removal declarations, and rejects the load outright if the
// corrupted-line ratio exceeds the configured threshold.
func (p *Persistence) TreatRawStream(ctx context.Context, rawStream io.Reader) (docs []domain.Document, indexes map[string]domain.IndexDTO, err error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	byID := uncomparable.New[domain.Document](p.hash, p.cmp)
	indexes = make(map[string]domain.IndexDTO)

	var corruptLines, totalLines int

	lines := bufio.NewScanner(rawStream)
	for lines.Scan() {
		line := lines.Bytes()
		if len(line) == 0 {
			continue
		}

		totalLines++

		raw := make(map[string]any)
		if err := p.deserializer.Deserialize(ctx, line, &raw); err != nil {
			corruptLines++
			continue
		}

		doc, err := p.newDocument(raw)
		if err != nil {
			corruptLines++
			continue
		}

		if doc.Has("_id") {
			if err := p.foldDocumentRecord(doc, byID); err != nil {
				corruptLines++
				continue
			}
		} else if err := p.foldIndexRecord(doc, indexes); err != nil {
			corruptLines++
			continue
		}
	}
	if err := lines.Err(); err != nil {
		return nil, nil, err
	}

	if totalLines > 0 {
		rate := float64(corruptLines) / float64(totalLines)
		if rate > p.corruptAlertThreshold {
			return nil, nil, domain.ErrCorruptFiles{
				CorruptionRate:        rate,
				CorruptItems:          corruptLines,
				DataLength:            totalLines,
				CorruptAlertThreshold: p.corruptAlertThreshold,
			}
		}
	}

	return slices.Collect(byID.Values()), indexes, nil
}

// foldIndexRecord applies an index creation/removal declaration line onto
// the accumulated index map; unrecognized shapes are ignored.
func (p *Persistence) foldIndexRecord(doc domain.Document, into map[string]domain.IndexDTO) error {
	if created := doc.D("$$indexCreated"); created != nil && created.Get("fieldName") != nil {
		var dto domain.IndexDTO
		if err := p.decoder.Decode(doc, &dto); err != nil {
			return err
		}
		into[dto.IndexCreated.FieldName] = dto
		return nil
	}
	if removed, ok := doc.Get("$$indexRemoved").(string); ok {
		delete(into, removed)
	}
	return nil
}

// foldDocumentRecord applies a document upsert/tombstone line onto the
// id-keyed accumulator, deleting on a `$$deleted: true` marker and
// upserting otherwise.
func (p *Persistence) foldDocumentRecord(doc domain.Document, into documentsByID) error {
	deleted, err := p.cmp.Compare(doc.Get("$$deleted"), true)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return into.Delete(doc.ID())
	}
	return into.Set(doc.ID(), doc)
}

// LoadDatabase implements [domain.Persistence].
func (p *Persistence) LoadDatabase(ctx context.Context) (docs []domain.Document, indexes map[string]domain.IndexDTO, err error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	// Index state is reset by the datastore, not here.
	if p.inMemoryOnly {
		return nil, nil, nil
	}

	if err := p.EnsureParentDirectoryExists(ctx, p.filename, p.dirMode); err != nil {
		return nil, nil, err
	}
	if err := p.storage.EnsureDatafileIntegrity(p.filename, p.fileMode); err != nil {
		return nil, nil, err
	}

	fileStream, err := p.storage.ReadFileStream(p.filename, p.fileMode)
	if err != nil {
		return nil, nil, err
	}
	defer fileStream.Close()

	docs, indexes, err = p.TreatRawStream(ctx, fileStream)
	if err != nil {
		return nil, nil, err
	}

	// Rewriting the recovered state back out immediately (rather than
	// leaving that to the caller) collapses any recovered corruption/
	// compaction backlog into one clean file before the datastore starts
	// serving requests.
	if err := p.PersistCachedDatabase(ctx, docs, indexes); err != nil {
		return nil, nil, err
	}

	return docs, indexes, nil
}

// DropDatabase implements [domain.Persistence].
func (p *Persistence) DropDatabase(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if p.inMemoryOnly {
		return nil
	}
	exists, err := p.storage.Exists(p.filename)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return p.storage.Remove(p.filename)
}

// PersistCachedDatabase implements [domain.Persistence].
func (p *Persistence) PersistCachedDatabase(ctx context.Context, allData []domain.Document, indexes map[string]domain.IndexDTO) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.inMemoryOnly {
		return nil
	}

	var lines [][]byte

	for _, doc := range allData {
		encoded, err := p.serializer.Serialize(ctx, doc)
		if err != nil {
			return err
		}
		lines = append(lines, encoded)
	}

	for fieldName, idx := range indexes {
		if fieldName == "_id" {
			continue
		}
		encoded, err := p.serializer.Serialize(ctx, idx)
		if err != nil {
			return err
		}
		lines = append(lines, encoded)
	}

	if err := p.storage.CrashSafeWriteFileLines(p.filename, lines, p.dirMode, p.fileMode); err != nil {
		return err
	}

	p.compactionDone.Broadcast()
	return nil
}

// EnsureParentDirectoryExists implements [domain.Persistence].
func (p *Persistence) EnsureParentDirectoryExists(ctx context.Context, dir string, mode os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.storage.EnsureParentDirectoryExists(dir, mode)
}

// WaitCompaction implements [domain.Persistence].
func (p *Persistence) WaitCompaction(ctx context.Context) error {
	p.compactionDone.L.Lock()
	defer p.compactionDone.L.Unlock()
	return p.compactionDone.WaitWithContext(ctx)
}
