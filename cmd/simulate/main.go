// Command simulate drives the scheduling engine with concurrent claim,
// release and regenerate traffic against the in-memory store. It exists to
// demonstrate under contention that a slot is never double-booked and that
// regeneration never disturbs a booked slot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/secondheart/scheduling/internal/logging"
	redisclient "github.com/secondheart/scheduling/internal/redis"
	"github.com/secondheart/scheduling/internal/schedule"
	"github.com/secondheart/scheduling/internal/timeutil"
)

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, success, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.latencies))
	copy(latencies, om.latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))
	p50 = latencies[len(latencies)*50/100]
	p95 = latencies[min(len(latencies)*95/100, len(latencies)-1)]
	return avg, p50, p95
}

type appointmentPool struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (p *appointmentPool) Add(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
}

func (p *appointmentPool) TakeRandom() (uuid.UUID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.ids) == 0 {
		return uuid.Nil, false
	}
	idx := rand.Intn(len(p.ids))
	id := p.ids[idx]
	p.ids = append(p.ids[:idx], p.ids[idx+1:]...)
	return id, true
}

func main() {
	workers := flag.Int("workers", 32, "concurrent workers")
	duration := flag.Duration("duration", 10*time.Second, "how long to run")
	patients := flag.Int("patients", 200, "patient pool size")
	flag.Parse()

	logger := logging.New("dev", "simulate")
	repo := schedule.NewMemoryRepository()
	svc := schedule.NewService(repo, redisclient.NewNopLocker(), logger)

	gofakeit.Seed(time.Now().UnixNano())

	provider := schedule.Provider{
		ID:                  uuid.New(),
		Name:                gofakeit.Name(),
		AppointmentDuration: 30,
		Active:              true,
	}
	repo.PutProvider(provider)

	patientIDs := make([]uuid.UUID, 0, *patients)
	for i := 0; i < *patients; i++ {
		p := schedule.Patient{ID: uuid.New(), Name: gofakeit.Name()}
		repo.PutPatient(p)
		patientIDs = append(patientIDs, p.ID)
	}

	ctx := context.Background()
	for day := 1; day <= 5; day++ {
		mustCreateInterval(ctx, svc, provider.ID, day, schedule.SegmentBeforeBreak, timeutil.NewTimeOfDay(9, 0), timeutil.NewTimeOfDay(12, 0))
		mustCreateInterval(ctx, svc, provider.ID, day, schedule.SegmentAfterBreak, timeutil.NewTimeOfDay(13, 0), timeutil.NewTimeOfDay(17, 0))
	}

	res, err := svc.Regenerate(ctx, provider.ID, 14)
	if err != nil {
		fmt.Fprintf(os.Stderr, "regenerate: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("generated %d slots between %s and %s\n",
		res.Created, res.RangeStart.Format("2006-01-02"), res.RangeEnd.Format("2006-01-02"))

	slots, err := repo.ListSlots(ctx, provider.ID, schedule.SlotFilter{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "list slots: %v\n", err)
		os.Exit(1)
	}
	slotIDs := make([]uuid.UUID, len(slots))
	for i := range slots {
		slotIDs[i] = slots[i].ID
	}

	var (
		claims   OperationMetrics
		releases OperationMetrics
		regens   OperationMetrics
		appts    appointmentPool
		wg       sync.WaitGroup
	)
	deadline := time.Now().Add(*duration)

	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))

			for time.Now().Before(deadline) {
				switch op := rng.Intn(10); {
				case op < 7: // claim
					slotID := slotIDs[rng.Intn(len(slotIDs))]
					patientID := patientIDs[rng.Intn(len(patientIDs))]
					start := time.Now()
					appt, err := svc.Claim(ctx, slotID, patientID)
					claims.Record(time.Since(start), err == nil, errors.Is(err, schedule.ErrSlotUnavailable))
					if err == nil {
						appts.Add(appt.ID)
					}
				case op < 9: // release
					id, ok := appts.TakeRandom()
					if !ok {
						continue
					}
					start := time.Now()
					err := svc.Release(ctx, id)
					releases.Record(time.Since(start), err == nil, errors.Is(err, schedule.ErrAppointmentNotFound))
				default: // regenerate under load
					start := time.Now()
					_, err := svc.Regenerate(ctx, provider.ID, 14)
					regens.Record(time.Since(start), err == nil, false)
				}
			}
		}(int64(w) + time.Now().UnixNano())
	}

	wg.Wait()

	report("claim", &claims)
	report("release", &releases)
	report("regenerate", &regens)

	// Invariant check: every booked slot has exactly one appointment.
	booked := schedule.SlotBooked
	bookedSlots, _ := repo.ListSlots(ctx, provider.ID, schedule.SlotFilter{Status: &booked})
	for _, s := range bookedSlots {
		if _, err := repo.GetAppointmentForSlot(ctx, s.ID); err != nil {
			fmt.Fprintf(os.Stderr, "INVARIANT VIOLATION: booked slot %s has no appointment\n", s.ID)
			os.Exit(1)
		}
	}
	fmt.Printf("invariants hold: %d booked slots, each with exactly one appointment\n", len(bookedSlots))
}

func mustCreateInterval(ctx context.Context, svc *schedule.Service, providerID uuid.UUID, day int, segment schedule.Segment, start, end timeutil.TimeOfDay) {
	if _, err := svc.CreateWorkingInterval(ctx, providerID, day, segment, start, end); err != nil {
		fmt.Fprintf(os.Stderr, "create working interval: %v\n", err)
		os.Exit(1)
	}
}

func report(name string, om *OperationMetrics) {
	avg, p50, p95 := om.Stats()
	fmt.Printf("%-10s total=%d success=%d conflict=%d error=%d avg=%s p50=%s p95=%s\n",
		name, om.Total, om.Success, om.Conflict, om.Error, avg, p50, p95)
}
