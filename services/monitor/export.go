package monitor

import (
	"fmt"
	"os"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

type parquetSnapshot struct {
	ID                 string `parquet:"name=id, type=UTF8, encoding=PLAIN_DICTIONARY"`
	RunID              string `parquet:"name=run_id, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Wrapper            string `parquet:"name=wrapper, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Contract           string `parquet:"name=contract, type=UTF8, encoding=PLAIN_DICTIONARY"`
	TakenAt            string `parquet:"name=taken_at, type=UTF8, encoding=PLAIN_DICTIONARY"`
	LSDExchangeRate    string `parquet:"name=lsd_exchange_rate, type=UTF8, encoding=PLAIN_DICTIONARY"`
	LSDBalance         string `parquet:"name=lsd_balance, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Supply             string `parquet:"name=supply, type=UTF8, encoding=PLAIN_DICTIONARY"`
	ExchangeRate       string `parquet:"name=exchange_rate, type=UTF8, encoding=PLAIN_DICTIONARY"`
	ExpectedRate       string `parquet:"name=expected_exchange_rate, type=UTF8, encoding=PLAIN_DICTIONARY"`
	LSDRate            string `parquet:"name=lsd_rate, type=UTF8, encoding=PLAIN_DICTIONARY"`
	MaxDecompoundRatio string `parquet:"name=max_decompound_ratio, type=UTF8, encoding=PLAIN_DICTIONARY"`
	RatioSum           string `parquet:"name=ratio_sum, type=UTF8, encoding=PLAIN_DICTIONARY"`
	TotalSeconds       int64  `parquet:"name=total_seconds, type=INT64"`
	LastDecompound     string `parquet:"name=last_decompound, type=UTF8, encoding=PLAIN_DICTIONARY"`
	PendingLSD         string `parquet:"name=pending_lsd_rewards, type=UTF8, encoding=PLAIN_DICTIONARY"`
	PendingLuna        string `parquet:"name=pending_underlying_rewards, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Slashed            bool   `parquet:"name=slashed, type=BOOLEAN"`
	Blocked            string `parquet:"name=blocked, type=UTF8, encoding=PLAIN_DICTIONARY"`
}

// ExportParquet writes rows to a snappy-compressed parquet file at path.
// Amounts and rates keep their exact decimal text.
func ExportParquet(path string, rows []SnapshotRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("monitor: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(parquetSnapshot), 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("monitor: parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		pr := &parquetSnapshot{
			ID:                 row.ID.String(),
			RunID:              row.RunID.String(),
			Wrapper:            row.Wrapper,
			Contract:           row.Contract,
			TakenAt:            row.TakenAt.UTC().Format(time.RFC3339),
			LSDExchangeRate:    row.LSDExchangeRate,
			LSDBalance:         row.LSDBalance,
			Supply:             row.Supply,
			ExchangeRate:       row.ExchangeRate,
			ExpectedRate:       row.ExpectedRate,
			LSDRate:            row.LSDRate,
			MaxDecompoundRatio: row.MaxDecompoundRatio,
			RatioSum:           row.RatioSum,
			TotalSeconds:       int64(row.TotalSeconds),
			LastDecompound:     row.LastDecompound.UTC().Format(time.RFC3339),
			PendingLSD:         row.PendingLSD,
			PendingLuna:        row.PendingLuna,
			Slashed:            row.Slashed,
			Blocked:            row.Blocked,
		}
		if err := pw.Write(pr); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("monitor: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("monitor: parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("monitor: close parquet file: %w", err)
	}
	return nil
}
