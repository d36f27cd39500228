package acquisition

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/relabs-tech/flight_sensors/internal/calibration"
	"github.com/relabs-tech/flight_sensors/internal/frame"
	"github.com/relabs-tech/flight_sensors/internal/imu"
	"github.com/relabs-tech/flight_sensors/internal/snapshot"
	"github.com/relabs-tech/flight_sensors/internal/units"
)

// fakeBus replays prepared frames, one per burst read.
type fakeBus struct {
	mu     sync.Mutex
	frames [][]byte
	i      int
	reads  int
}

func (f *fakeBus) ReadBurst(startReg byte, buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.i >= len(f.frames) {
		return errors.New("no more frames")
	}
	copy(buf, f.frames[f.i])
	f.i++
	f.reads++
	return nil
}

func (f *fakeBus) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func primaryFrame(ay, ax, az, gy, gx, gz int16) []byte {
	buf := make([]byte, frame.PrimaryLen)
	put := func(off int, v int16) {
		buf[off] = byte(uint16(v) >> 8)
		buf[off+1] = byte(uint16(v))
	}
	put(0, ay)
	put(2, ax)
	put(4, az)
	put(8, gy)
	put(10, gx)
	put(12, gz)
	return buf
}

func TestNotifierCoalescesSignals(t *testing.T) {
	n := NewNotifier()
	n.Signal()
	n.Signal()
	n.Signal()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if !n.Wait(ctx) {
		t.Fatal("first wait should succeed")
	}
	// The three signals coalesced into one pending wake.
	if n.Wait(ctx) {
		t.Error("second wait should block until the context expires")
	}
}

func TestNotifierWakesWaiter(t *testing.T) {
	n := NewNotifier()
	done := make(chan bool, 1)
	go func() {
		done <- n.Wait(context.Background())
	}()

	time.Sleep(10 * time.Millisecond)
	n.Signal()

	select {
	case ok := <-done:
		if !ok {
			t.Error("wait returned false without cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("waiter never woke")
	}
}

func TestOneSignalOneCycle(t *testing.T) {
	bus := &fakeBus{frames: [][]byte{
		primaryFrame(0, 0, 0, 0, 0, 0),
		primaryFrame(0, 0, 0, 0, 0, 0),
	}}
	ready := NewNotifier()
	cal := calibration.NewEngine(1024, units.GPerLSB, false)
	pub := snapshot.NewPublisher()
	task := New(bus, 0x3B, ready, imu.Presence{}, cal, pub)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- task.Run(ctx) }()

	ready.Signal()
	waitForReads(t, bus, 1)

	// No second wake pending: the read count must stay at one.
	time.Sleep(50 * time.Millisecond)
	if got := bus.readCount(); got != 1 {
		t.Errorf("reads = %d, want 1 cycle per signal", got)
	}

	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("run returned %v, want context.Canceled", err)
	}
}

// End-to-end: wire bytes through decode, normalize and publish. The
// rotated mounting means wire order Y,X,Z and a sign flip on X.
func TestEndToEndAxisRemap(t *testing.T) {
	bus := &fakeBus{frames: [][]byte{
		primaryFrame(100, 200, 300, 10, 20, 30),
	}}
	ready := NewNotifier()
	cal := calibration.NewEngine(1024, units.GPerLSB, false)
	pub := snapshot.NewPublisher()
	task := New(bus, 0x3B, ready, imu.Presence{}, cal, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.Run(ctx)

	ready.Signal()
	waitForReads(t, bus, 1)

	acc := takeReading(t, pub.TakeAcc)
	gyro := takeReading(t, pub.TakeGyro)

	const eps = 1e-9
	if math.Abs(acc.X-(-200*units.GPerLSB)) > eps ||
		math.Abs(acc.Y-100*units.GPerLSB) > eps ||
		math.Abs(acc.Z-300*units.GPerLSB) > eps {
		t.Errorf("acc = %+v", acc.Axis3f)
	}
	if math.Abs(gyro.X-(-20*units.DegPerLSB)) > eps ||
		math.Abs(gyro.Y-10*units.DegPerLSB) > eps ||
		math.Abs(gyro.Z-30*units.DegPerLSB) > eps {
		t.Errorf("gyro = %+v", gyro.Axis3f)
	}
}

func TestCalibrationThroughTask(t *testing.T) {
	// Two warm-up cycles with constant gyro (4,6,8) on the wire
	// (Y,X,Z order: gy=6, gx=4, gz=8), then one more cycle: the
	// bias-corrected gyro must be exactly zero.
	frames := [][]byte{
		primaryFrame(0, 0, 4096, 6, 4, 8),
		primaryFrame(0, 0, 4096, 6, 4, 8),
		primaryFrame(0, 0, 4096, 6, 4, 8),
	}
	bus := &fakeBus{frames: frames}
	ready := NewNotifier()
	cal := calibration.NewEngine(2, units.GPerLSB, false)
	pub := snapshot.NewPublisher()
	task := New(bus, 0x3B, ready, imu.Presence{}, cal, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.Run(ctx)

	for i := 1; i <= 3; i++ {
		ready.Signal()
		waitForReads(t, bus, i)
	}

	if !task.Calibrated() {
		t.Fatal("task not calibrated after warm-up window")
	}

	gyro := takeReading(t, pub.TakeGyro)
	const eps = 1e-9
	if math.Abs(gyro.X) > eps || math.Abs(gyro.Y) > eps || math.Abs(gyro.Z) > eps {
		t.Errorf("bias-corrected gyro at rest = %+v, want zero", gyro.Axis3f)
	}
}

func TestPresenceGatedSegments(t *testing.T) {
	p := imu.Presence{Magnetometer: true}
	buf := primaryFrame(0, 0, 0, 0, 0, 0)
	buf = append(buf, 0x01, 0x0A, 0x00, 0x0B, 0x00, 0x0C, 0x00, 0x00)

	bus := &fakeBus{frames: [][]byte{buf}}
	ready := NewNotifier()
	cal := calibration.NewEngine(1024, units.GPerLSB, false)
	pub := snapshot.NewPublisher()
	task := New(bus, 0x3B, ready, p, cal, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.Run(ctx)

	ready.Signal()
	waitForReads(t, bus, 1)

	if _, ok := pub.TakeBaro(); ok {
		t.Error("baro published despite absent barometer")
	}
	mag := takeReading(t, pub.TakeMag)
	const eps = 1e-9
	if math.Abs(mag.X-10/units.GaussPerLSB) > eps {
		t.Errorf("mag = %+v", mag.Axis3f)
	}
}

func waitForReads(t *testing.T, bus *fakeBus, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for bus.readCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d bus reads (got %d)", n, bus.readCount())
		}
		time.Sleep(time.Millisecond)
	}
}

func takeReading(t *testing.T, take func() (snapshot.Reading, bool)) snapshot.Reading {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if r, ok := take(); ok {
			return r
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for a committed reading")
		}
		time.Sleep(time.Millisecond)
	}
}
