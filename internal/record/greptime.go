package record

import (
	"context"
	"fmt"
	"net"
	"strconv"

	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"

	"rover-console/internal/logging"
	"rover-console/internal/telemetry"
)

const (
	DefaultGreptimeTable = "rover_telemetry"
	defaultGreptimePort  = 4001
)

type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeRecorder writes records to a GreptimeDB table over gRPC.
type GreptimeRecorder struct {
	client greptimeClient
	table  string
}

// NewGreptimeRecorder connects to endpoint ("host" or "host:port") and
// writes into database.tableName. The table is created by GreptimeDB on the
// first write.
func NewGreptimeRecorder(endpoint, database, tableName string) (*GreptimeRecorder, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	cfg := greptime.NewConfig(host).WithPort(port)
	if database != "" {
		cfg = cfg.WithDatabase(database)
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	if tableName == "" {
		tableName = DefaultGreptimeTable
	}
	return &GreptimeRecorder{client: client, table: tableName}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return endpoint, defaultGreptimePort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("greptime endpoint %q: invalid port", endpoint)
	}
	return host, port, nil
}

// Record inserts one row.
func (w *GreptimeRecorder) Record(ctx context.Context, rec telemetry.Record) error {
	tbl, err := w.newTable()
	if err != nil {
		return err
	}
	err = tbl.AddRow(
		rec.RoverID,
		int64(rec.Battery),
		rec.Position.X,
		rec.Position.Y,
		rec.IsCharging,
		rec.IsMoving,
		rec.HasCommunication,
		int64(rec.SurvivorsFound),
		int64(rec.Seq),
		rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("greptime row: %w", err)
	}
	if _, err := w.client.Write(ctx, tbl); err != nil {
		return fmt.Errorf("greptime write: %w", err)
	}
	logging.FromContext(ctx).Debug("greptime row written", "table", w.table, "seq", rec.Seq)
	return nil
}

func (w *GreptimeRecorder) newTable() (*table.Table, error) {
	tbl, err := table.New(w.table)
	if err != nil {
		return nil, err
	}
	cols := []struct {
		name string
		tag  bool
		typ  types.ColumnType
	}{
		{"rover_id", true, types.STRING},
		{"battery", false, types.INT64},
		{"x", false, types.FLOAT64},
		{"y", false, types.FLOAT64},
		{"is_charging", false, types.BOOLEAN},
		{"is_moving", false, types.BOOLEAN},
		{"has_communication", false, types.BOOLEAN},
		{"survivors_found", false, types.INT64},
		{"seq", false, types.INT64},
	}
	for _, c := range cols {
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.typ)
		} else {
			err = tbl.AddFieldColumn(c.name, c.typ)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	return tbl, nil
}

// Close is a no-op; the ingester client holds no resources needing release.
func (w *GreptimeRecorder) Close() error { return nil }
