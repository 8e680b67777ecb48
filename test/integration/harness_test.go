//go:build integration

package integration

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/accelbench/accelbench/fixtures"
	"github.com/accelbench/accelbench/internal/benchmarks/stream"
	"github.com/accelbench/accelbench/internal/comm"
	"github.com/accelbench/accelbench/internal/harness"
	"github.com/accelbench/accelbench/internal/logger"
	"github.com/accelbench/accelbench/pkg/runrecord"
)

func kernelFixture(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "stream_kernels_pcie.aocx")
	require.NoError(t, os.WriteFile(path, fixtures.StreamKernelImage, 0o644))
	return path
}

func TestStreamBenchmark_EndToEnd(t *testing.T) {
	var log *zap.Logger
	var group comm.Communicator

	app := fxtest.New(t,
		fx.Provide(
			func() (*zap.Logger, error) { return logger.New("debug") },
			comm.FromEnv,
		),
		fx.Populate(&log, &group),
	)
	app.RequireStart()
	defer app.RequireStop()

	dir := t.TempDir()
	dumpPath := filepath.Join(dir, "stream.json")

	var out, errw bytes.Buffer
	code := stream.Run(
		[]string{"STREAM", "-f", kernelFixture(t, dir), "-n", "2", "-s", "4096", "--dump-json", dumpPath},
		harness.WithLogger(log),
		harness.WithCommunicator(group),
		harness.WithOutput(&out, &errw))
	require.Equal(t, 0, code, "stderr: %s", errw.String())
	assert.Contains(t, out.String(), "Validation: SUCCESS!")

	record, err := runrecord.Read(dumpPath)
	require.NoError(t, err)
	assert.Equal(t, "STREAM", record.Name)
	assert.True(t, record.Validated)
	assert.Nil(t, record.Comm)

	data, err := os.ReadFile(dumpPath)
	require.NoError(t, err)
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(fixtures.RunRecordSchema),
		gojsonschema.NewBytesLoader(data))
	require.NoError(t, err)
	assert.True(t, result.Valid(), "schema violations: %v", result.Errors())
}

func TestStreamBenchmark_TwoRanks(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	coordinator := listener.Addr().String()
	require.NoError(t, listener.Close())

	dir := t.TempDir()
	kernelPath := kernelFixture(t, dir)
	dumpPath := filepath.Join(dir, "stream.json")

	var eg errgroup.Group
	for rank := 0; rank < 2; rank++ {
		rank := rank
		eg.Go(func() error {
			group, err := comm.NewTCPGroup(zap.NewNop(), rank, 2, coordinator)
			if err != nil {
				return fmt.Errorf("rank %d: %w", rank, err)
			}
			defer group.Close()

			args := []string{"STREAM", "-f", kernelPath, "-n", "2", "-s", "1024"}
			if rank == 0 {
				args = append(args, "--dump-json", dumpPath)
			}
			var out, errw bytes.Buffer
			if code := stream.Run(args,
				harness.WithLogger(zap.NewNop()),
				harness.WithCommunicator(group),
				harness.WithOutput(&out, &errw)); code != 0 {
				return fmt.Errorf("rank %d exited %d: %s", rank, code, errw.String())
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	record, err := runrecord.Read(dumpPath)
	require.NoError(t, err)
	require.NotNil(t, record.Comm)
	assert.Equal(t, 2, record.Comm.WorldSize)
	assert.Equal(t, "tcp", record.Comm.Transport)
	assert.Equal(t, float64(2), record.Settings["Ranks"])
}
