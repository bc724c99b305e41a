// Package datastore contains the default [domain.DB] implementation.
package datastore

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"iter"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/webbestmaster/nedb/adapter/comparer"
	"github.com/webbestmaster/nedb/adapter/cursor"
	"github.com/webbestmaster/nedb/adapter/data"
	"github.com/webbestmaster/nedb/adapter/decoder"
	"github.com/webbestmaster/nedb/adapter/deserializer"
	"github.com/webbestmaster/nedb/adapter/fieldnavigator"
	"github.com/webbestmaster/nedb/adapter/hasher"
	"github.com/webbestmaster/nedb/adapter/idgenerator"
	"github.com/webbestmaster/nedb/adapter/index"
	"github.com/webbestmaster/nedb/adapter/matcher"
	"github.com/webbestmaster/nedb/adapter/modifier"
	"github.com/webbestmaster/nedb/adapter/persistence"
	"github.com/webbestmaster/nedb/adapter/querier"
	"github.com/webbestmaster/nedb/adapter/serializer"
	"github.com/webbestmaster/nedb/adapter/storage"
	"github.com/webbestmaster/nedb/adapter/timegetter"
	"github.com/webbestmaster/nedb/domain"
	"github.com/webbestmaster/nedb/pkg/ctxsync"
)

const (
	DefaultDirMode  os.FileMode = 0o755
	DefaultFileMode os.FileMode = 0o644
)

// Datastore implements [domain.DB].
type Datastore struct {
	filename              string
	timestampData         bool
	inMemoryOnly          bool
	corruptAlertThreshold float64
	comparer              domain.Comparer
	fileMode              os.FileMode
	dirMode               os.FileMode
	executor              *ctxsync.Mutex
	persistence           domain.Persistence
	storage               domain.Storage
	serializer            domain.Serializer
	deserializer          domain.Deserializer
	indexes               map[string]domain.Index
	ttlIndexes            map[string]time.Duration
	indexFactory          domain.IndexFactory
	documentFactory       domain.DocumentFactory
	cursorFactory         domain.CursorFactory
	matcher               domain.Matcher
	decoder               domain.Decoder
	modifier              domain.Modifier
	timeGetter            domain.TimeGetter
	hasher                domain.Hasher
	fieldNavigator        domain.FieldNavigator
	idGenerator           domain.IDGenerator
	randomReader          io.Reader
	querier               domain.Querier
}

// NewDatastore returns a new implementation of domain.DB.
func NewDatastore(options ...Option) (domain.DB, error) {
	comp := comparer.NewComparer()
	docFac := data.NewDocument
	dec := decoder.NewDecoder()
	fn := fieldnavigator.NewFieldNavigator(docFac)
	h := hasher.NewHasher()
	matchr := matcher.NewMatcher(
		matcher.WithDocumentFactory(docFac),
		matcher.WithComparer(comp),
		matcher.WithFieldNavigator(fn),
	)

	d := &Datastore{
		filename:              "",
		timestampData:         false,
		inMemoryOnly:          false,
		corruptAlertThreshold: 0.1,
		comparer:              comp,
		fileMode:              DefaultFileMode,
		dirMode:               DefaultDirMode,
		indexes:               make(map[string]domain.Index),
		ttlIndexes:            make(map[string]time.Duration),
		indexFactory:          index.NewIndex,
		documentFactory:       docFac,
		cursorFactory:         cursor.NewCursor,
		matcher:               matchr,
		decoder:               dec,
		modifier:              modifier.NewModifier(docFac, comp, fn, matchr),
		timeGetter:            timegetter.NewTimeGetter(),
		hasher:                h,
		fieldNavigator:        fn,
		randomReader:          rand.Reader,
		storage:               storage.NewStorage(),
		serializer:            serializer.NewSerializer(comp, docFac),
		deserializer:          deserializer.NewDeserializer(dec),
	}

	for _, option := range options {
		option(d)
	}

	if d.persistence == nil {
		var err error
		d.persistence, err = persistence.NewPersistence(
			persistence.WithFilename(d.filename),
			persistence.WithInMemoryOnly(d.inMemoryOnly || d.filename == ""),
			persistence.WithCorruptAlertThreshold(d.corruptAlertThreshold),
			persistence.WithFileMode(d.fileMode),
			persistence.WithDirMode(d.dirMode),
			persistence.WithSerializer(d.serializer),
			persistence.WithDeserializer(d.deserializer),
			persistence.WithStorage(d.storage),
			persistence.WithDecoder(d.decoder),
			persistence.WithComparer(d.comparer),
			persistence.WithDocFactory(d.documentFactory),
			persistence.WithHasher(d.hasher),
		)
		if err != nil {
			return nil, err
		}
	}

	if d.idGenerator == nil {
		d.idGenerator = idgenerator.NewIDGenerator(idgenerator.WithReader(d.randomReader))
	}

	d.querier = querier.NewQuerier(
		querier.WithDocumentFactory(d.documentFactory),
		querier.WithComparer(d.comparer),
		querier.WithFieldNavigator(d.fieldNavigator),
		querier.WithMatcher(d.matcher),
	)

	idIdx, err := d.indexFactory(
		domain.WithIndexFieldName("_id"),
		domain.WithIndexUnique(true),
	)
	if err != nil {
		return nil, err
	}
	d.indexes["_id"] = idIdx
	d.inMemoryOnly = d.inMemoryOnly || d.filename == ""
	d.executor = ctxsync.NewMutex()

	return d, nil
}

func (d *Datastore) addToIndexes(ctx context.Context, doc domain.Document) error {
	var failingIndex int
	var err error
	keys := slices.Collect(maps.Keys(d.indexes))

	for i, key := range keys {
		if err = d.indexes[key].Insert(ctx, doc); err != nil {
			failingIndex = i
			break
		}
	}

	if err != nil {
		for i := range failingIndex {
			if removeErr := d.indexes[keys[i]].Remove(ctx, doc); removeErr != nil {
				return errors.Join(err, removeErr)
			}
		}
		return err
	}
	return nil
}

func (d *Datastore) checkDocuments(docs ...domain.Document) error {
	for _, doc := range docs {
		for k, v := range doc.Iter() {
			if err := d.checkKey(k, v); err != nil {
				return err
			}
			if err := d.checkValue(v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Datastore) checkValue(v any) error {
	switch t := v.(type) {
	case domain.Document:
		return d.checkDocuments(t)
	case []any:
		for _, itm := range t {
			if err := d.checkValue(itm); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Datastore) checkKey(k string, v any) error {
	if strings.ContainsRune(k, '.') {
		return domain.ErrFieldName{Field: k, Reason: "cannot contain '.'"}
	}
	if !strings.HasPrefix(k, "$") {
		return nil
	}

	ok := false
	switch k {
	case "$$date":
		ok = isNumber(v)
	case "$$deleted":
		ok = isTrue(v)
	case "$$indexCreated", "$$indexRemoved":
		ok = true
	default:
	}
	if ok {
		return nil
	}
	return domain.ErrFieldName{Field: k, Reason: "cannot start with '$'"}
}

func isNumber(v any) bool {
	if v == nil {
		return false
	}
	switch v.(type) {
	case
		uint, uint8, uint16, uint32, uint64,
		int, int8, int16, int32, int64,
		float32, float64:
		return true
	default:
		return false
	}
}

func isTrue(v any) bool {
	if v == nil {
		return false
	}
	if vt, ok := v.(bool); ok {
		return vt
	}
	return false
}

func (d *Datastore) cloneDocs(docs ...domain.Document) ([]domain.Document, error) {
	res := make([]domain.Document, len(docs))
	for n, doc := range docs {
		newDoc, err := d.clone(doc)
		if err != nil {
			return nil, err
		}
		res[n] = newDoc.(domain.Document)
	}
	return res, nil
}

func (d *Datastore) clone(v any) (any, error) {
	switch t := v.(type) {
	case domain.Document:
		res, err := d.documentFactory(nil)
		if err != nil {
			return nil, err
		}
		for k, v := range t.Iter() {
			val, err := d.clone(v)
			if err != nil {
				return nil, err
			}
			res.Set(k, val)
		}
		return res, nil
	case []any:
		res := make([]any, len(t))
		for n, v := range t {
			val, err := d.clone(v)
			if err != nil {
				return nil, err
			}
			res[n] = val
		}
		return res, nil
	default:
		return t, nil
	}
}

// CompactDatafile implements [domain.DB].
func (d *Datastore) CompactDatafile(ctx context.Context) error {
	if err := d.executor.LockWithContext(ctx); err != nil {
		return err
	}
	defer d.executor.Unlock()

	allData := slices.Collect(d.getAllData())
	indexDTOs := d.getIndexDTOs()

	return d.persistence.PersistCachedDatabase(ctx, allData, indexDTOs)
}

// Count implements [domain.DB].
func (d *Datastore) Count(ctx context.Context, query any) (int64, error) {
	if err := d.executor.LockWithContext(ctx); err != nil {
		return 0, err
	}
	defer d.executor.Unlock()

	cur, err := d.find(ctx, query, false)
	if err != nil {
		return 0, err
	}
	defer cur.Close()

	var count int64
	for cur.Next() {
		count++
	}
	if err := cur.Err(); err != nil {
		return 0, err
	}
	return count, nil
}

func (d *Datastore) createNewID() (string, error) {
	for {
		id, err := d.idGenerator.GenerateID(16)
		if err != nil {
			return "", err
		}

		matches, err := d.indexes["_id"].GetMatching(id)
		if err != nil {
			return "", err
		}

		unique := true
		for _, err := range matches {
			if err != nil {
				return "", err
			}
			unique = false
		}
		if unique {
			return id, nil
		}
	}
}

// DropDatabase implements [domain.DB].
func (d *Datastore) DropDatabase(ctx context.Context) error {
	if err := d.executor.LockWithContext(ctx); err != nil {
		return err
	}
	defer d.executor.Unlock()
	ctx = context.WithoutCancel(ctx)

	idIdx, err := d.indexFactory(domain.WithIndexFieldName("_id"), domain.WithIndexUnique(true))
	if err != nil {
		return err
	}
	d.indexes = map[string]domain.Index{"_id": idIdx}
	d.ttlIndexes = make(map[string]time.Duration)
	return d.persistence.DropDatabase(ctx)
}

// EnsureIndex implements [domain.DB].
func (d *Datastore) EnsureIndex(ctx context.Context, options ...domain.EnsureIndexOption) error {
	if err := d.executor.LockWithContext(ctx); err != nil {
		return err
	}
	defer d.executor.Unlock()

	var opts domain.EnsureIndexOptions
	for _, option := range options {
		option(&opts)
	}

	if len(opts.FieldNames) == 0 || slices.Contains(opts.FieldNames, "") {
		return domain.ErrNoFieldName
	}

	for _, f := range opts.FieldNames {
		if strings.ContainsRune(f, ',') {
			return domain.ErrFieldName{Field: f, Reason: "cannot contain ','"}
		}
	}

	_fields := slices.Clone(opts.FieldNames)
	slices.Sort(_fields)
	fields := strings.Join(_fields, ",")

	if _, exists := d.indexes[fields]; exists {
		return nil
	}

	idxOptions := []domain.IndexOption{
		domain.WithIndexFieldName(fields),
		domain.WithIndexUnique(opts.Unique),
		domain.WithIndexSparse(opts.Sparse),
		domain.WithIndexExpireAfter(opts.ExpireAfter),
		domain.WithIndexDocumentFactory(d.documentFactory),
		domain.WithIndexComparer(d.comparer),
		domain.WithIndexHasher(d.hasher),
		domain.WithIndexFieldNavigator(d.fieldNavigator),
	}

	newIdx, err := d.indexFactory(idxOptions...)
	if err != nil {
		return err
	}

	allData := slices.Collect(d.getAllData())
	if err := newIdx.Insert(ctx, allData...); err != nil {
		return err
	}
	d.indexes[fields] = newIdx

	if opts.ExpireAfter > 0 {
		d.ttlIndexes[fields] = opts.ExpireAfter
	}

	dto := domain.IndexDTO{
		IndexCreated: domain.IndexCreated{
			FieldName:   fields,
			Unique:      opts.Unique,
			Sparse:      opts.Sparse,
			ExpireAfter: opts.ExpireAfter.Seconds(),
		},
	}

	idxDoc, err := d.documentFactory(dto)
	if err != nil {
		return err
	}

	return d.persistence.PersistNewState(ctx, idxDoc)
}

func (d *Datastore) filterIndexNames(indexNames []string, k string, v any) bool {
	if !slices.Contains(indexNames, k) {
		return false
	}
	if _, ok := v.(domain.Document); ok {
		return false
	}
	if _, ok := v.([]any); ok {
		return false
	}
	return true
}

// Find implements [domain.DB].
func (d *Datastore) Find(ctx context.Context, query any, options ...domain.FindOption) (domain.Cursor, error) {
	if err := d.executor.LockWithContext(ctx); err != nil {
		return nil, err
	}
	defer d.executor.Unlock()
	return d.find(ctx, query, false, options...)
}

func (d *Datastore) find(ctx context.Context, query any, dontExpireStaleDocs bool, options ...domain.FindOption) (domain.Cursor, error) {
	queryDoc, err := d.documentFactory(query)
	if err != nil {
		return nil, err
	}

	var opt domain.FindOptions
	for _, option := range options {
		option(&opt)
	}

	proj := make(map[string]uint8)
	if err := d.decoder.Decode(opt.Projection, &proj); err != nil {
		return nil, err
	}

	allData, err := d.getCandidates(ctx, queryDoc, dontExpireStaleDocs)
	if err != nil {
		return nil, err
	}

	queryOptions := []domain.QueryOption{
		domain.WithQuery(queryDoc),
		domain.WithQueryLimit(opt.Limit),
		domain.WithQuerySkip(opt.Skip),
		domain.WithQuerySort(opt.Sort),
		domain.WithQueryProjection(proj),
	}

	res, err := d.querier.Query(allData, queryOptions...)
	if err != nil {
		return nil, err
	}

	res, err = d.cloneDocs(res...)
	if err != nil {
		return nil, err
	}

	return d.cursorFactory(ctx, res)
}

// FindOne implements [domain.DB].
func (d *Datastore) FindOne(ctx context.Context, query any, target any, options ...domain.FindOption) error {
	if err := d.executor.LockWithContext(ctx); err != nil {
		return err
	}
	defer d.executor.Unlock()

	options = append(options, domain.WithLimit(1))

	cur, err := d.find(ctx, query, false, options...)
	if err != nil {
		return err
	}
	defer cur.Close()
	if !cur.Next() {
		if err := cur.Err(); err != nil {
			return err
		}
		return domain.ErrNotFound
	}
	return cur.Scan(ctx, target)
}

// GetAllData implements [domain.DB].
func (d *Datastore) GetAllData(ctx context.Context) (domain.Cursor, error) {
	if err := d.executor.LockWithContext(ctx); err != nil {
		return nil, err
	}
	defer d.executor.Unlock()
	return d.cursorFactory(ctx, slices.Collect(d.getAllData()))
}

func (d *Datastore) getAllData() iter.Seq[domain.Document] {
	return d.indexes["_id"].GetAll()
}

func withNilErr(seq iter.Seq[domain.Document]) iter.Seq2[domain.Document, error] {
	return func(yield func(domain.Document, error) bool) {
		for doc := range seq {
			if !yield(doc, nil) {
				return
			}
		}
	}
}

func (d *Datastore) getCandidates(ctx context.Context, query domain.Document, dontExpireStaleDocs bool) (iter.Seq2[domain.Document, error], error) {
	docs, err := d.getRawCandidates(ctx, query)
	if err != nil {
		return nil, err
	}

	if dontExpireStaleDocs {
		return docs, nil
	}

	return d.filterExpired(ctx, docs), nil
}

func (d *Datastore) filterExpired(ctx context.Context, docs iter.Seq2[domain.Document, error]) iter.Seq2[domain.Document, error] {
	return func(yield func(domain.Document, error) bool) {
		now := d.timeGetter.GetTime()

		for doc, err := range docs {
			if err != nil {
				yield(nil, err)
				return
			}

			expired := false
			for field, ttl := range d.ttlIndexes {
				v := doc.Get(field)
				if v == nil {
					continue
				}
				t, ok := v.(time.Time)
				if !ok {
					continue
				}
				if now.After(t.Add(ttl)) {
					expired = true
					break
				}
			}

			if !expired {
				if !yield(doc, nil) {
					return
				}
				continue
			}

			rmCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
			rm, err := d.documentFactory(map[string]any{"_id": doc.ID()})
			if err != nil {
				cancel()
				yield(nil, err)
				return
			}
			if _, err := d.remove(rmCtx, rm, domain.WithRemoveMulti(false)); err != nil {
				cancel()
				yield(nil, err)
				return
			}
			cancel()
		}
	}
}

func (d *Datastore) getIndexDTOs() map[string]domain.IndexDTO {
	indexDTOs := make(map[string]domain.IndexDTO, len(d.indexes))
	for indexName, idx := range d.indexes {
		indexDTOs[indexName] = domain.IndexDTO{
			IndexCreated: domain.IndexCreated{
				FieldName:   idx.FieldName(),
				Unique:      idx.Unique(),
				Sparse:      idx.Sparse(),
				ExpireAfter: d.ttlIndexes[indexName].Seconds(),
			},
		}
	}
	return indexDTOs
}

func (d *Datastore) getRawCandidates(ctx context.Context, query domain.Document) (iter.Seq2[domain.Document, error], error) {
	// if query is empty, return all
	if query.Len() == 0 {
		return withNilErr(d.getAllData()), nil
	}

	// checking if query has an indexed field.
	if res, ok, err := d.getSimpleCandidates(query); err != nil || ok {
		return res, err
	}

	// checking if query has all fields of an existent composed index.
	if res, ok, err := d.getComposedCandidates(query); err != nil || ok {
		return res, err
	}

	// checking if query has the query comparer $in, which is indexable.
	if res, ok, err := d.getEnumCandidates(query); err != nil || ok {
		return res, err
	}

	// checking if query has an indexable query field ($lt, $gte, etc.).
	if res, ok, err := d.getCompCandidates(ctx, query); err != nil || ok {
		return res, err
	}

	// if cannot use any indexes, return all data.
	return withNilErr(d.getAllData()), nil
}

func (d *Datastore) getSimpleCandidates(query domain.Document) (iter.Seq2[domain.Document, error], bool, error) {
	indexNames := slices.Collect(maps.Keys(d.indexes))
	for k, v := range query.Iter() {
		if !d.filterIndexNames(indexNames, k, v) {
			continue
		}
		return d.matchingResult(d.indexes[k].GetMatching(v))
	}
	return nil, false, nil
}

func (d *Datastore) getComposedCandidates(query domain.Document) (iter.Seq2[domain.Document, error], bool, error) {
IndexesLoop:
	for idxName, idx := range d.indexes {
		parts, err := d.fieldNavigator.SplitFields(idxName)
		if err != nil {
			return nil, false, err
		}
		if len(parts) <= 1 {
			continue
		}

		for _, part := range parts {
			if !query.Has(part) {
				continue IndexesLoop
			}
			if query.D(part) != nil {
				continue IndexesLoop
			}
		}
		return d.matchingResult(idx.GetMatching(query))
	}
	return nil, false, nil
}

func (d *Datastore) getEnumCandidates(query domain.Document) (iter.Seq2[domain.Document, error], bool, error) {
	for k := range query.Iter() {
		vDoc := query.D(k)
		if vDoc == nil || !vDoc.Has("$in") {
			continue
		}

		idx, ok := d.indexes[k]
		if !ok {
			continue
		}

		in := vDoc.Get("$in")
		if l, ok := in.([]any); ok {
			return d.matchingResult(idx.GetMatching(l...))
		}

		return d.matchingResult(idx.GetMatching(in))
	}
	return nil, false, nil
}

func (d *Datastore) getCompCandidates(ctx context.Context, query domain.Document) (iter.Seq2[domain.Document, error], bool, error) {
	comp := [...]string{"$lt", "$lte", "$gt", "$gte"}
	for k, v := range query.Iter() {
		if v == nil {
			continue
		}

		vDoc := query.D(k)
		if vDoc == nil {
			continue
		}

		for _, c := range comp {
			if idx, ok := d.indexes[k]; ok && vDoc.Has(c) {
				return d.matchingResult(idx.GetBetweenBounds(ctx, vDoc))
			}
		}
	}
	return nil, false, nil
}

func (d *Datastore) matchingResult(dt iter.Seq2[domain.Document, error], err error) (iter.Seq2[domain.Document, error], bool, error) {
	if err != nil {
		return nil, false, err
	}
	return dt, true, nil
}

// Insert implements [domain.DB].
func (d *Datastore) Insert(ctx context.Context, newDocs ...any) (domain.Cursor, error) {
	if err := d.executor.LockWithContext(ctx); err != nil {
		return nil, err
	}
	defer d.executor.Unlock()
	res, err := d.insert(ctx, newDocs...)
	if err != nil {
		return nil, err
	}
	return d.cursorFactory(ctx, res)
}

func (d *Datastore) insert(ctx context.Context, newDocs ...any) ([]domain.Document, error) {
	if len(newDocs) == 0 {
		return nil, nil
	}
	preparedDocs, err := d.prepareDocumentsForInsertion(newDocs)
	if err != nil {
		return nil, err
	}
	// avoid a mess by ensuring it won't cancel during cache insertion
	ctx = context.WithoutCancel(ctx)
	if err = d.insertInCache(ctx, preparedDocs); err != nil {
		return nil, err
	}
	if err := d.persistence.PersistNewState(ctx, preparedDocs...); err != nil {
		return nil, err
	}
	return d.cloneDocs(preparedDocs...)
}

func (d *Datastore) insertInCache(ctx context.Context, preparedDocs []domain.Document) error {
	var failingIndex int
	var err error

	for i, preparedDoc := range preparedDocs {
		if err = d.addToIndexes(ctx, preparedDoc); err != nil {
			failingIndex = i
			break
		}
	}

	if err != nil {
		for i := range failingIndex {
			if removeErr := d.removeFromIndexes(ctx, preparedDocs[i]); removeErr != nil {
				return errors.Join(err, removeErr)
			}
		}
		return err
	}
	return nil
}

// LoadDatabase implements [domain.DB].
func (d *Datastore) LoadDatabase(ctx context.Context) error {
	if err := d.executor.LockWithContext(ctx); err != nil {
		return err
	}
	defer d.executor.Unlock()
	if err := d.resetIndexes(ctx); err != nil {
		return err
	}
	if d.inMemoryOnly {
		return nil
	}
	docs, indexes, err := d.persistence.LoadDatabase(ctx)
	if err != nil {
		return err
	}
	for key, idx := range indexes {
		idxOptions := []domain.IndexOption{
			domain.WithIndexFieldName(idx.IndexCreated.FieldName),
			domain.WithIndexUnique(idx.IndexCreated.Unique),
			domain.WithIndexSparse(idx.IndexCreated.Sparse),
			domain.WithIndexExpireAfter(time.Duration(idx.IndexCreated.ExpireAfter * float64(time.Second))),
			domain.WithIndexDocumentFactory(d.documentFactory),
			domain.WithIndexComparer(d.comparer),
			domain.WithIndexHasher(d.hasher),
			domain.WithIndexFieldNavigator(d.fieldNavigator),
		}
		d.indexes[key], err = d.indexFactory(idxOptions...)
		if err != nil {
			return err
		}
		if idx.IndexCreated.ExpireAfter > 0 {
			d.ttlIndexes[key] = time.Duration(idx.IndexCreated.ExpireAfter * float64(time.Second))
		}
	}
	if err := d.resetIndexes(ctx, docs...); err != nil {
		if resetErr := d.resetIndexes(ctx); resetErr != nil {
			return errors.Join(err, resetErr)
		}
		return err
	}

	indexDTOs := d.getIndexDTOs()

	return d.persistence.PersistCachedDatabase(ctx, docs, indexDTOs)
}

func (d *Datastore) prepareDocumentsForInsertion(newDocs []any) ([]domain.Document, error) {
	preparedDocs := make([]domain.Document, len(newDocs))
	for n, newDoc := range newDocs {
		preparedDoc, err := d.documentFactory(newDoc)
		if err != nil {
			return nil, err
		}
		if !preparedDoc.Has("_id") {
			id, err := d.createNewID()
			if err != nil {
				return nil, err
			}
			preparedDoc.Set("_id", id)
		}
		if d.timestampData {
			now := d.timeGetter.GetTime()
			if !preparedDoc.Has("createdAt") {
				preparedDoc.Set("createdAt", now)
			}
			if !preparedDoc.Has("updatedAt") {
				preparedDoc.Set("updatedAt", now)
			}
		}
		if err := d.checkDocuments(preparedDoc); err != nil {
			return nil, err
		}
		preparedDocs[n] = preparedDoc
	}
	return preparedDocs, nil
}

// Remove implements [domain.DB].
func (d *Datastore) Remove(ctx context.Context, query any, options ...domain.RemoveOption) (int64, error) {
	if err := d.executor.LockWithContext(ctx); err != nil {
		return 0, err
	}
	defer d.executor.Unlock()
	queryDoc, err := d.documentFactory(query)
	if err != nil {
		return 0, err
	}
	return d.remove(ctx, queryDoc, options...)
}

func (d *Datastore) remove(ctx context.Context, query domain.Document, options ...domain.RemoveOption) (int64, error) {
	var limit int64

	var opts domain.RemoveOptions
	for _, option := range options {
		option(&opts)
	}

	if opts.Multi {
		limit = 0
	} else {
		limit = 1
	}

	cur, err := d.find(ctx, query, true, domain.WithLimit(limit))
	if err != nil {
		return 0, err
	}
	defer cur.Close()

	var vals []data.M
	for cur.Next() {
		var v data.M
		if err := cur.Scan(ctx, &v); err != nil {
			return 0, err
		}
		vals = append(vals, v)
	}
	if err := cur.Err(); err != nil {
		return 0, err
	}

	docs := make([]domain.Document, len(vals))
	var numRemoved int64
	for n, val := range vals {
		newVal := data.M{"_id": val.ID(), "$$deleted": true}
		numRemoved++
		if err := d.removeFromIndexes(ctx, val); err != nil {
			return 0, err
		}
		docs[n] = newVal
	}

	if err := d.persistence.PersistNewState(ctx, docs...); err != nil {
		return 0, err
	}

	return numRemoved, nil
}

func (d *Datastore) removeFromIndexes(ctx context.Context, doc domain.Document) error {
	for _, idx := range d.indexes {
		if err := idx.Remove(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

// RemoveIndex implements [domain.DB].
func (d *Datastore) RemoveIndex(ctx context.Context, fieldNames ...string) error {
	if err := d.executor.LockWithContext(ctx); err != nil {
		return err
	}
	defer d.executor.Unlock()

	for _, f := range fieldNames {
		if strings.ContainsRune(f, ',') {
			return domain.ErrFieldName{Field: f, Reason: "cannot contain ','"}
		}
	}

	_fields := slices.Clone(fieldNames)
	slices.Sort(_fields)
	fieldName := strings.Join(_fields, ",")

	delete(d.indexes, fieldName)
	delete(d.ttlIndexes, fieldName)

	dto := domain.IndexDTO{
		IndexRemoved: fieldName,
	}

	idxDoc, err := d.documentFactory(dto)
	if err != nil {
		return err
	}

	return d.persistence.PersistNewState(ctx, idxDoc)
}

func (d *Datastore) resetIndexes(ctx context.Context, docs ...domain.Document) error {
	for _, idx := range d.indexes {
		if err := idx.Reset(ctx, docs...); err != nil {
			return err
		}
	}
	return nil
}

// Update implements [domain.DB].
func (d *Datastore) Update(ctx context.Context, query any, updateQuery any, options ...domain.UpdateOption) (domain.Cursor, error) {
	if err := d.executor.LockWithContext(ctx); err != nil {
		return nil, err
	}
	defer d.executor.Unlock()
	res, err := d.update(ctx, query, updateQuery, options...)
	if err != nil {
		return nil, err
	}
	return d.cursorFactory(ctx, res)
}

func (d *Datastore) update(ctx context.Context, query any, updateQuery any, options ...domain.UpdateOption) ([]domain.Document, error) {
	updateQryDoc, err := d.documentFactory(updateQuery)
	if err != nil {
		return nil, err
	}

	var opts domain.UpdateOptions
	for _, option := range options {
		option(&opts)
	}

	var limit int64 = 1
	if opts.Multi {
		limit = 0
	}

	if opts.Upsert {
		inserted, rtrn, err := d.upsert(ctx, query, updateQryDoc, limit)
		if err != nil || rtrn {
			return inserted, err
		}
	}

	updated, mods, err := d.findAndModify(ctx, query, updateQryDoc, limit)
	if err != nil {
		return nil, err
	}

	updateCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	if err := d.updateIndexes(updateCtx, mods); err != nil {
		return nil, err
	}

	if err := d.persistence.PersistNewState(updateCtx, updated...); err != nil {
		return nil, err
	}

	return d.cloneDocs(updated...)
}

func (d *Datastore) upsert(ctx context.Context, query any, mod domain.Document, limit int64) ([]domain.Document, bool, error) {
	cur, err := d.find(ctx, query, false, domain.WithLimit(limit))
	if err != nil {
		return nil, false, err
	}
	defer cur.Close()

	var count int64
	for cur.Next() {
		count++
	}
	if err := cur.Err(); err != nil {
		return nil, false, err
	}
	if count != 0 {
		return nil, false, nil
	}

	qry, err := d.documentFactory(query)
	if err != nil {
		return nil, false, err
	}
	if err := d.checkDocuments(mod); err != nil {
		if mod, err = d.modifier.Modify(qry, mod); err != nil {
			return nil, false, err
		}
	}
	insertedDoc, err := d.insert(ctx, mod)
	if err != nil {
		return nil, false, err
	}
	return insertedDoc, true, nil
}

func (d *Datastore) findAndModify(ctx context.Context, qry any, modQry domain.Document, limit int64) ([]domain.Document, []domain.Update, error) {
	cur, err := d.find(ctx, qry, false, domain.WithLimit(limit))
	if err != nil {
		return nil, nil, err
	}
	defer cur.Close()

	var mods []domain.Update
	var updatedDocs []domain.Document
	for cur.Next() {
		oldDoc, err := d.documentFactory(nil)
		if err != nil {
			return nil, nil, err
		}
		if err := cur.Scan(ctx, &oldDoc); err != nil {
			return nil, nil, err
		}
		newDoc, err := d.modifier.Modify(oldDoc, modQry)
		if err != nil {
			return nil, nil, err
		}

		if d.timestampData {
			newDoc.Set("createdAt", oldDoc.Get("createdAt"))
			newDoc.Set("updatedAt", d.timeGetter.GetTime())
		}

		mods = append(mods, domain.Update{OldDoc: oldDoc, NewDoc: newDoc})
		updatedDocs = append(updatedDocs, newDoc)
	}
	if err := cur.Err(); err != nil {
		return nil, nil, err
	}
	return updatedDocs, mods, nil
}

func (d *Datastore) updateIndexes(ctx context.Context, mods []domain.Update) error {
	var failingIndex int
	var err error

	keys := slices.Collect(maps.Keys(d.indexes))
	for i, key := range keys {
		if err = d.indexes[key].UpdateMultipleDocs(ctx, mods...); err != nil {
			failingIndex = i
			break
		}
	}
	if err != nil {
		for i := range failingIndex {
			if revertErr := d.indexes[keys[i]].RevertMultipleUpdates(ctx, mods...); revertErr != nil {
				err = errors.Join(err, revertErr)
				break
			}
		}
	}
	return err
}

// WaitCompaction implements [domain.DB].
func (d *Datastore) WaitCompaction(ctx context.Context) error {
	return d.persistence.WaitCompaction(ctx)
}
