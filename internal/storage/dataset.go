package storage

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/pkg/errors"
)

// Dataset is one Parquet table rooted under a key prefix, optionally
// hive-partitioned (col=value directories).
type Dataset struct {
	client      Client
	root        string
	table       Table
	compression compress.Compression

	now func() time.Time
}

// NewDataset creates a dataset handle. root is the key prefix the table
// lives under, e.g. "curated".
func NewDataset(client Client, root string, table Table, compression compress.Compression) *Dataset {
	return &Dataset{
		client:      client,
		root:        root,
		table:       table,
		compression: compression,
		now:         time.Now,
	}
}

// PartitionPrefix returns the key prefix for one partition value, with a
// trailing slash so listing never bleeds into sibling partitions.
func (d *Dataset) PartitionPrefix(col, value string) string {
	return path.Join(d.root, d.table.Name, col+"="+value) + "/"
}

func (d *Dataset) tablePrefix() string {
	return path.Join(d.root, d.table.Name) + "/"
}

// ReadPartition reads every Parquet file under one partition and returns
// the combined rows. A partition with no files yields no rows and no error.
func (d *Dataset) ReadPartition(ctx context.Context, col, value string) ([]Row, error) {
	prefix := d.PartitionPrefix(col, value)
	keys, err := d.client.List(ctx, prefix)
	if err != nil {
		return nil, errors.Wrapf(err, "listing partition %s", prefix)
	}

	var rows []Row
	for _, key := range keys {
		if !strings.HasSuffix(key, ".parquet") {
			continue
		}
		data, err := d.client.Read(ctx, key)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", key)
		}
		fileRows, err := UnmarshalRows(ctx, data)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding %s", key)
		}
		rows = append(rows, fileRows...)
	}
	return rows, nil
}

// ReplacePartition overwrites one partition with rows. The new file is
// written before the old keys are deleted, so a failure mid-way leaves
// duplicate rows rather than missing ones; the next merge dedups them.
func (d *Dataset) ReplacePartition(ctx context.Context, col, value string, rows []Row) error {
	prefix := d.PartitionPrefix(col, value)

	oldKeys, err := d.client.List(ctx, prefix)
	if err != nil {
		return errors.Wrapf(err, "listing partition %s", prefix)
	}

	newKey := ""
	if len(rows) > 0 {
		data, err := MarshalRows(d.table, rows, d.compression)
		if err != nil {
			return errors.Wrapf(err, "encoding partition %s", prefix)
		}
		newKey = prefix + fmt.Sprintf("%s-%d.parquet", d.table.Name, d.now().UnixNano())
		if err := d.client.Write(ctx, newKey, data); err != nil {
			return errors.Wrapf(err, "writing %s", newKey)
		}
	}

	for _, key := range oldKeys {
		if key == newKey {
			continue
		}
		if err := d.client.Delete(ctx, key); err != nil {
			return errors.Wrapf(err, "deleting superseded %s", key)
		}
	}

	log.Printf("Dataset: replaced partition %s with %d rows", prefix, len(rows))
	return nil
}

// WriteSnapshot replaces the whole table with rows. Used for small
// dimension tables that are fully rebuilt on every run.
func (d *Dataset) WriteSnapshot(ctx context.Context, rows []Row) error {
	prefix := d.tablePrefix()

	oldKeys, err := d.client.List(ctx, prefix)
	if err != nil {
		return errors.Wrapf(err, "listing table %s", prefix)
	}

	data, err := MarshalRows(d.table, rows, d.compression)
	if err != nil {
		return errors.Wrapf(err, "encoding table %s", prefix)
	}
	newKey := prefix + fmt.Sprintf("%s-%d.parquet", d.table.Name, d.now().UnixNano())
	if err := d.client.Write(ctx, newKey, data); err != nil {
		return errors.Wrapf(err, "writing %s", newKey)
	}

	for _, key := range oldKeys {
		if key == newKey {
			continue
		}
		if err := d.client.Delete(ctx, key); err != nil {
			return errors.Wrapf(err, "deleting superseded %s", key)
		}
	}

	log.Printf("Dataset: wrote snapshot %s with %d rows", prefix, len(rows))
	return nil
}
