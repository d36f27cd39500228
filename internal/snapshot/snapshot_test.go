package snapshot

import (
	"sync"
	"testing"

	"github.com/relabs-tech/flight_sensors/internal/imu"
)

func sample(v float64) imu.SensorData {
	return imu.SensorData{
		Gyro: imu.Axis3f{X: v},
		Acc:  imu.Axis3f{Y: v},
		Mag:  imu.Axis3f{Z: v},
		Baro: imu.Baro{Pressure: v},
	}
}

var allPresent = imu.Presence{Magnetometer: true, Barometer: true}

func TestTakeLatestSemantics(t *testing.T) {
	p := NewPublisher()

	if _, ok := p.TakeGyro(); ok {
		t.Error("take succeeded on never-populated channel")
	}

	p.Commit(sample(1), allPresent, true)
	p.Commit(sample(2), allPresent, true)

	g, ok := p.TakeGyro()
	if !ok {
		t.Fatal("take failed after commit")
	}
	if g.X != 2 {
		t.Errorf("gyro = %f, want overwrite-to-latest 2", g.X)
	}
	if g.Cycle != 2 {
		t.Errorf("cycle = %d, want 2", g.Cycle)
	}

	// Channel is empty until the next commit.
	if _, ok := p.TakeGyro(); ok {
		t.Error("take succeeded twice without a new commit")
	}

	p.Commit(sample(3), allPresent, true)
	if g, ok := p.TakeGyro(); !ok || g.X != 3 {
		t.Errorf("take after recommit = %+v ok=%v", g, ok)
	}
}

func TestPresenceGating(t *testing.T) {
	p := NewPublisher()
	pres := imu.Presence{Magnetometer: false, Barometer: false}

	for i := 0; i < 100; i++ {
		p.Commit(sample(float64(i)), pres, true)
	}

	if _, ok := p.TakeMag(); ok {
		t.Error("mag channel written despite absent magnetometer")
	}
	if _, ok := p.TakeBaro(); ok {
		t.Error("baro channel written despite absent barometer")
	}
	if _, ok := p.TakeGyro(); !ok {
		t.Error("gyro channel should always be written")
	}
}

func TestMagHeldUntilFirstValidHeading(t *testing.T) {
	p := NewPublisher()

	p.Commit(sample(1), allPresent, false)
	if _, ok := p.TakeMag(); ok {
		t.Error("mag published before any valid heading")
	}

	p.Commit(sample(2), allPresent, true)
	if m, ok := p.TakeMag(); !ok || m.Z != 2 {
		t.Errorf("mag = %+v ok=%v", m, ok)
	}
}

func TestTakeAllUntorn(t *testing.T) {
	p := NewPublisher()
	p.Commit(sample(7), allPresent, true)

	set := p.TakeAll()
	if !set.GyroOK || !set.AccOK || !set.MagOK || !set.BaroOK {
		t.Fatalf("incomplete set: %+v", set)
	}
	if set.Gyro.Cycle != set.Acc.Cycle || set.Acc.Cycle != set.Mag.Cycle || set.Mag.Cycle != set.Baro.Cycle {
		t.Errorf("cycle mismatch: %d %d %d %d",
			set.Gyro.Cycle, set.Acc.Cycle, set.Mag.Cycle, set.Baro.Cycle)
	}

	// Drained.
	set = p.TakeAll()
	if set.GyroOK || set.AccOK || set.MagOK || set.BaroOK {
		t.Errorf("set not drained: %+v", set)
	}
}

func TestSnapshotAtomicityUnderConcurrentCommits(t *testing.T) {
	p := NewPublisher()
	const commits = 5000

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for i := 1; i <= commits; i++ {
			p.Commit(sample(float64(i)), allPresent, true)
		}
	}()

	// A reader interleaved with commits must never observe a set whose
	// cycle stamps differ: every commit refreshes all four channels in
	// one critical section.
	reads := 0
	for reads < 1000 {
		set := p.TakeAll()
		if !set.GyroOK {
			select {
			case <-done:
				// Writer finished; nothing more will arrive.
				reads = 1000
			default:
			}
			continue
		}
		reads++
		if !set.AccOK || !set.MagOK || !set.BaroOK {
			t.Fatalf("torn set: %+v", set)
		}
		c := set.Gyro.Cycle
		if set.Acc.Cycle != c || set.Mag.Cycle != c || set.Baro.Cycle != c {
			t.Fatalf("torn cycle stamps: %d %d %d %d",
				c, set.Acc.Cycle, set.Mag.Cycle, set.Baro.Cycle)
		}
	}
	wg.Wait()
}
