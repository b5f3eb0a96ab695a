package record

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	ingesterContext "github.com/GreptimeTeam/greptimedb-ingester-go/context"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"teleop-bridge/internal/telemetry"
)

// TableName holds the table used when writing to GreptimeDB. It defaults to
// "teleop_telemetry" but can be overridden via the GREPTIMEDB_TABLE
// environment variable.
var TableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "teleop_telemetry"
}()

// GreptimeDBWriter writes snapshots to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client  greptime.Client
	db      string
	table   string
	session string
}

// NewGreptimeDBWriter creates a writer and auto-creates the table if needed.
// sessionID tags every row so overlapping bridge runs stay separable.
func NewGreptimeDBWriter(endpoint, database, sessionID string) (*GreptimeDBWriter, error) {
	ctx := ingesterContext.NewContext(context.Background())
	client, err := greptime.NewClient(ctx, &greptime.Config{
		Endpoint: endpoint,
	})
	if err != nil {
		return nil, err
	}

	ddl := `
CREATE TABLE IF NOT EXISTS ` + TableName + ` (
  session_id STRING TAG,
  sleep STRING,
  speed_plus STRING,
  lora_connected STRING,
  link_quality DOUBLE,
  tx_rate_hz DOUBLE,
  rx_hb_age_s DOUBLE,
  v DOUBLE,
  w DOUBLE,
  ts TIMESTAMP TIME INDEX
) WITH (ttl='30d')
`
	if _, err := client.SQL(ctx, ddl); err != nil {
		return nil, err
	}

	return &GreptimeDBWriter{
		client:  client,
		db:      database,
		table:   TableName,
		session: sessionID,
	}, nil
}

// Write inserts a single snapshot.
func (w *GreptimeDBWriter) Write(s telemetry.Snapshot) error {
	return w.WriteBatch([]telemetry.Snapshot{s})
}

// WriteBatch inserts multiple snapshots.
func (w *GreptimeDBWriter) WriteBatch(snaps []telemetry.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	ctx := ingesterContext.NewContext(context.Background())

	tbl := table.New(w.table)
	tbl.AddTagColumn("session_id", types.StringType, 0)
	tbl.AddFieldColumn("sleep", types.StringType)
	tbl.AddFieldColumn("speed_plus", types.StringType)
	tbl.AddFieldColumn("lora_connected", types.StringType)
	tbl.AddFieldColumn("link_quality", types.Float64Type)
	tbl.AddFieldColumn("tx_rate_hz", types.Float64Type)
	tbl.AddFieldColumn("rx_hb_age_s", types.Float64Type)
	tbl.AddFieldColumn("v", types.Float64Type)
	tbl.AddFieldColumn("w", types.Float64Type)
	tbl.SetTimeIndex("ts", types.TimestampType)

	for _, s := range snaps {
		tbl.AppendTagValue("session_id", w.session)
		tbl.AppendFieldValue("sleep", strconv.FormatBool(s.Sleep))
		tbl.AppendFieldValue("speed_plus", strconv.FormatBool(s.SpeedPlus))
		tbl.AppendFieldValue("lora_connected", strconv.FormatBool(s.LoraConnected))
		tbl.AppendFieldValue("link_quality", float64(s.LinkQuality))
		tbl.AppendFieldValue("tx_rate_hz", s.TxRateHz)
		tbl.AppendFieldValue("rx_hb_age_s", s.RxHBAgeS)
		tbl.AppendFieldValue("v", s.V)
		tbl.AppendFieldValue("w", s.W)
		tbl.AppendTimeIndex(time.UnixMilli(s.Timestamp))
	}

	if err := w.client.Write(ctx, w.db, []*table.Table{tbl}); err != nil {
		log.Printf("[GreptimeDBWriter] Write failed: %v", err)
		return err
	}
	return nil
}
