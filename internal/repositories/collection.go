package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"

	"mindmail/internal/errs"
)

// schema checks the validate tags of decoded records.
var schema = validator.New()

// SaveCollection encodes items and overwrites key with them in one write.
func SaveCollection[T any](ctx context.Context, kv KVStore, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	return SaveValue(ctx, kv, key, items)
}

// LoadCollection decodes the collection under key. A missing key is an empty
// collection; a value that does not decode is reported as corrupted.
func LoadCollection[T any](ctx context.Context, kv KVStore, key string) ([]T, error) {
	items, err := LoadValue[[]T](ctx, kv, key)
	if err != nil {
		return nil, err
	}
	if items == nil || *items == nil {
		return []T{}, nil
	}
	return *items, nil
}

// SaveValue encodes v as JSON under key.
func SaveValue[T any](ctx context.Context, kv KVStore, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &errs.StorageError{Op: "save", Key: key, Err: fmt.Errorf("%w: encode: %v", errs.ErrSaveFailed, err)}
	}
	if err := kv.Set(ctx, key, data); err != nil {
		return &errs.StorageError{Op: "save", Key: key, Err: fmt.Errorf("%w: %w", errs.ErrSaveFailed, err)}
	}
	return nil
}

// LoadValue decodes the value under key, or returns nil when the key is absent.
func LoadValue[T any](ctx context.Context, kv KVStore, key string) (*T, error) {
	data, err := kv.Get(ctx, key)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &errs.StorageError{Op: "load", Key: key, Err: fmt.Errorf("%w: %w", errs.ErrLoadFailed, err)}
	}

	var v T
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return nil, errs.Corrupted(key, err)
	}
	if dec.More() {
		return nil, errs.Corrupted(key, errors.New("trailing data after value"))
	}
	if err := checkSchema(reflect.ValueOf(v)); err != nil {
		return nil, errs.Corrupted(key, err)
	}
	return &v, nil
}

// checkSchema validates a decoded struct, or each struct in a decoded slice.
// Values of other kinds have no schema beyond their JSON type.
func checkSchema(rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Struct:
		return schema.Struct(rv.Interface())
	case reflect.Slice:
		for i := 0; i < rv.Len(); i++ {
			if err := checkSchema(rv.Index(i)); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	}
	return nil
}

// DeleteKey removes key; a missing key is fine.
func DeleteKey(ctx context.Context, kv KVStore, key string) error {
	if err := kv.Delete(ctx, key); err != nil {
		return &errs.StorageError{Op: "delete", Key: key, Err: fmt.Errorf("%w: %w", errs.ErrSaveFailed, err)}
	}
	return nil
}
