package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MichelMeloG/JurChat/model"
	"github.com/MichelMeloG/JurChat/pkg/logger"
)

// PayloadKind tags the shape of a history response.
type PayloadKind int

const (
	PayloadEmpty PayloadKind = iota
	PayloadString
	PayloadStringArray
	PayloadObjectArray
	PayloadWrapped
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadString:
		return "string"
	case PayloadStringArray:
		return "string_array"
	case PayloadObjectArray:
		return "object_array"
	case PayloadWrapped:
		return "wrapped"
	default:
		return "empty"
	}
}

// HistoryPayload is a history response resolved into one of the known shapes.
// Only the field matching Kind is set.
type HistoryPayload struct {
	Kind    PayloadKind
	Text    string
	Strings []string
	Items   []any // elements of an object array, non-objects included
	Object  map[string]any
}

var (
	nameFields = []string{"name", "nome_documento", "filename", "fileName", "file_name", "document_name", "titulo", "title"}
	dateFields = []string{"uploadDate", "data_upload", "upload_date", "created_at", "createdAt", "date"}
	// nome_documento is the aggregate shape the workflow emits for history.
	collectionFields  = []string{"documents", "files", "data", "nome_documento"}
	singleItemFields  = []string{"name", "nome_documento", "filename"}
	inputDateLayouts  = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}
	maxHistoryNesting = 3
)

// ClassifyHistoryPayload resolves a raw response body into a HistoryPayload.
// Bodies that are not JSON are treated as plain text.
func ClassifyHistoryPayload(raw []byte) HistoryPayload {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return HistoryPayload{Kind: PayloadEmpty}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil || dec.More() {
		return HistoryPayload{Kind: PayloadString, Text: string(raw)}
	}
	return classifyValue(value)
}

func classifyValue(value any) HistoryPayload {
	switch v := value.(type) {
	case string:
		return HistoryPayload{Kind: PayloadString, Text: v}
	case []any:
		strs := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return HistoryPayload{Kind: PayloadObjectArray, Items: v}
			}
			strs = append(strs, s)
		}
		return HistoryPayload{Kind: PayloadStringArray, Strings: strs}
	case map[string]any:
		return HistoryPayload{Kind: PayloadWrapped, Object: v}
	default:
		return HistoryPayload{Kind: PayloadEmpty}
	}
}

// HistoryNormalizer turns history payloads into document records.
type HistoryNormalizer struct {
	dateLayout string
	now        func() time.Time
}

func NewHistoryNormalizer(dateLayout string) *HistoryNormalizer {
	return &HistoryNormalizer{
		dateLayout: dateLayout,
		now:        time.Now,
	}
}

// Normalize classifies raw and returns the records it describes. It never
// fails: unknown shapes yield an empty slice.
func (n *HistoryNormalizer) Normalize(ctx context.Context, raw []byte) []model.DocumentRecord {
	return n.NormalizePayload(ctx, ClassifyHistoryPayload(raw))
}

// NormalizePayload returns the records described by payload in order of
// appearance.
func (n *HistoryNormalizer) NormalizePayload(ctx context.Context, payload HistoryPayload) []model.DocumentRecord {
	return n.normalize(ctx, payload, 0)
}

func (n *HistoryNormalizer) normalize(ctx context.Context, payload HistoryPayload, depth int) []model.DocumentRecord {
	switch payload.Kind {
	case PayloadString:
		return n.fromText(payload.Text)
	case PayloadStringArray:
		return n.fromStrings(payload.Strings)
	case PayloadObjectArray:
		return n.fromItems(ctx, payload.Items)
	case PayloadWrapped:
		return n.fromObject(ctx, payload.Object, depth)
	default:
		logger.Debug(ctx, "history payload is empty")
		return []model.DocumentRecord{}
	}
}

func (n *HistoryNormalizer) fromText(text string) []model.DocumentRecord {
	segments := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == ','
	})

	records := make([]model.DocumentRecord, 0, len(segments))
	for _, segment := range segments {
		name := strings.TrimSpace(segment)
		if name == "" {
			continue
		}
		records = append(records, n.estimated(strconv.Itoa(len(records)+1), name))
	}
	return records
}

func (n *HistoryNormalizer) fromStrings(items []string) []model.DocumentRecord {
	records := make([]model.DocumentRecord, 0, len(items))
	for i, item := range items {
		name := strings.TrimSpace(item)
		if name == "" {
			continue
		}
		records = append(records, n.estimated(strconv.Itoa(i+1), name))
	}
	return records
}

func (n *HistoryNormalizer) fromItems(ctx context.Context, items []any) []model.DocumentRecord {
	records := make([]model.DocumentRecord, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case map[string]any:
			records = append(records, n.fromFields(ctx, v, i))
		case string:
			if name := strings.TrimSpace(v); name != "" {
				records = append(records, n.estimated(strconv.Itoa(i+1), name))
			}
		default:
			logger.Warn(ctx, "skipping history entry of unexpected type",
				"index", i,
				"type", fmt.Sprintf("%T", item),
			)
		}
	}
	return records
}

func (n *HistoryNormalizer) fromObject(ctx context.Context, obj map[string]any, depth int) []model.DocumentRecord {
	if depth >= maxHistoryNesting {
		logger.Warn(ctx, "history payload nested too deeply", "depth", depth)
		return []model.DocumentRecord{}
	}

	for _, key := range collectionFields {
		value, ok := obj[key]
		if !ok {
			continue
		}
		_, isList := value.([]any)
		_, isObject := value.(map[string]any)
		if !isList && !(isObject && key != "nome_documento") {
			// scalars are fields of a single document, not a collection
			continue
		}
		nested := classifyValue(value)
		logger.Debug(ctx, "history payload is wrapped", "key", key, "kind", nested.Kind.String())
		return n.normalize(ctx, nested, depth+1)
	}

	for _, key := range singleItemFields {
		if _, ok := obj[key]; ok {
			return []model.DocumentRecord{n.fromFields(ctx, obj, 0)}
		}
	}

	logger.Warn(ctx, "unrecognized history payload", "keys", objectKeys(obj))
	return []model.DocumentRecord{}
}

func (n *HistoryNormalizer) fromFields(ctx context.Context, obj map[string]any, index int) model.DocumentRecord {
	record := model.DocumentRecord{
		ID:   strconv.Itoa(index + 1),
		Name: fmt.Sprintf("Document %d", index+1),
	}

	if id, ok := scalarString(obj["id"]); ok {
		record.ID = id
	}
	if name, ok := firstString(obj, nameFields); ok {
		record.Name = name
	}

	if raw, ok := firstString(obj, dateFields); ok {
		if t, ok := n.parseDate(raw); ok {
			record.UploadDate = t.Format(n.dateLayout)
			return record
		}
		logger.Warn(ctx, "history date not parseable, using today", "value", raw, "document", record.Name)
	} else if millis, ok := firstNumber(obj, dateFields); ok && millis > 0 {
		record.UploadDate = time.UnixMilli(millis).Format(n.dateLayout)
		return record
	}

	record.UploadDate = n.today()
	record.UploadDateEstimated = true
	return record
}

func (n *HistoryNormalizer) parseDate(value string) (time.Time, bool) {
	for _, layout := range inputDateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t.In(time.Local), true
		}
	}
	if t, err := time.ParseInLocation(n.dateLayout, value, time.Local); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (n *HistoryNormalizer) estimated(id, name string) model.DocumentRecord {
	return model.DocumentRecord{
		ID:                  id,
		Name:                name,
		UploadDate:          n.today(),
		UploadDateEstimated: true,
	}
}

func (n *HistoryNormalizer) today() string {
	return n.now().Format(n.dateLayout)
}

func firstString(obj map[string]any, keys []string) (string, bool) {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func firstNumber(obj map[string]any, keys []string) (int64, bool) {
	for _, key := range keys {
		if num, ok := obj[key].(json.Number); ok {
			if v, err := num.Int64(); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

func scalarString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s, true
		}
	case json.Number:
		return v.String(), true
	}
	return "", false
}

func objectKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
