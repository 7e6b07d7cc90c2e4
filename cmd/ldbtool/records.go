package main

import (
	"bufio"
	"io"
	"strings"

	"github.com/hamba/avro"
	log "github.com/inconshreveable/log15"
	"github.com/openrelayxyz/cardinal-ldb"
	"github.com/openrelayxyz/cardinal-types/hexutil"
)

var recordSchema = avro.MustParse(`{
	"type": "array",
	"name": "records",
	"namespace": "cloud.rivet.cardinal.ldb",
	"items": {
		"name": "record",
		"type": "record",
		"fields": [
			{"name": "key", "type": "bytes"},
			{"name": "value", "type": "bytes"}
		]
	}
}`)

type record struct {
	Key   []byte `avro:"key"`
	Value []byte `avro:"value"`
}

// decodeArg reads 0x-prefixed arguments as hex and anything else as raw
// bytes.
func decodeArg(s string) ([]byte, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return hexutil.Decode(s)
	}
	return []byte(s), nil
}

// dump writes the records for every key listed on r, one per line, to w.
// Absent keys are skipped.
func dump(db *ldb.DB, r io.Reader, w io.Writer) (int, error) {
	records := []record{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, err := decodeArg(line)
		if err != nil {
			return 0, err
		}
		value, found, err := db.Get(key, nil)
		if err != nil {
			return 0, err
		}
		if !found {
			log.Debug("Key not found", "key", hexutil.Encode(key))
			continue
		}
		records = append(records, record{Key: key, Value: value})
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	data, err := avro.Marshal(recordSchema, records)
	if err != nil {
		return 0, err
	}
	_, err = w.Write(data)
	return len(records), err
}

// load writes every record read from r, batchSize records per write batch.
func load(db *ldb.DB, r io.Reader, batchSize int, wo *ldb.WriteOptions) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	var records []record
	if err := avro.Unmarshal(recordSchema, data, &records); err != nil {
		return 0, err
	}
	batch, err := db.NewWriteBatch()
	if err != nil {
		return 0, err
	}
	defer batch.Close()
	for i, rec := range records {
		dst, err := batch.PutReserve(rec.Key, len(rec.Value))
		if err != nil {
			return i, err
		}
		copy(dst, rec.Value)
		if batch.Len() >= batchSize {
			if err := db.Write(batch, wo); err != nil {
				return i, err
			}
			batch.Reset()
			log.Info("Loaded records", "count", i+1)
		}
	}
	if err := db.Write(batch, wo); err != nil {
		return len(records), err
	}
	return len(records), nil
}
