package engine

import (
	"math/rand"
	"sort"
)

const (
	TicketRows       = 3
	TicketCols       = 9
	NumbersPerRow    = 5
	NumbersPerTicket = 15
	MaxNumber        = 90
)

// layoutAttempts bounds the random occupancy search before we fall back to the
// deterministic fill; ticketAttempts bounds whole-ticket retries when a shared
// exclusion pool makes a column draw infeasible.
const (
	layoutAttempts = 32
	ticketAttempts = 64
	batchAttempts  = 8
)

// Ticket is a 3x9 Housie grid. A zero cell is blank. Each row carries exactly
// 5 numbers; column c only holds numbers from [9c+1, 9c+9], with the last
// column extended to 90; numbers within a column increase top to bottom.
type Ticket [TicketRows][TicketCols]int

// Numbers returns the 15 non-blank numbers in row-major order.
func (t Ticket) Numbers() []int {
	out := make([]int, 0, NumbersPerTicket)
	for r := 0; r < TicketRows; r++ {
		for c := 0; c < TicketCols; c++ {
			if t[r][c] != 0 {
				out = append(out, t[r][c])
			}
		}
	}
	return out
}

// Row returns the non-blank numbers in row r.
func (t Ticket) Row(r int) []int {
	out := make([]int, 0, NumbersPerRow)
	for c := 0; c < TicketCols; c++ {
		if t[r][c] != 0 {
			out = append(out, t[r][c])
		}
	}
	return out
}

// ColumnRange is the legal number band for column c.
func ColumnRange(c int) (lo, hi int) {
	lo = 9*c + 1
	hi = 9*c + 9
	if c == TicketCols-1 {
		hi = MaxNumber
	}
	return lo, hi
}

// Generate produces count independent tickets. When exclude is non-nil the
// whole batch draws from a shared pool: no number appears twice across the
// returned tickets or in exclude, and exclude is updated with every number
// dealt. Fails with ErrInvalidInput when count < 1 or the pool cannot cover
// the batch.
func Generate(count int, exclude map[int]bool) ([]Ticket, error) {
	if count < 1 {
		return nil, ErrInvalidInput
	}

	if exclude == nil {
		tickets := make([]Ticket, 0, count)
		for i := 0; i < count; i++ {
			t, ok := generateOne(nil)
			if !ok {
				return nil, ErrInvalidInput
			}
			tickets = append(tickets, t)
		}
		return tickets, nil
	}

	if count*NumbersPerTicket > MaxNumber-len(exclude) {
		return nil, ErrInvalidInput
	}

	// Earlier tickets in a shared-pool batch can strand a later one (a column
	// drained to zero), so an infeasible draw restarts the whole batch from
	// the caller's pool.
	for attempt := 0; attempt < batchAttempts; attempt++ {
		scratch := make(map[int]bool, len(exclude)+count*NumbersPerTicket)
		for n := range exclude {
			scratch[n] = true
		}
		tickets, ok := generateBatch(count, scratch)
		if !ok {
			continue
		}
		for n := range scratch {
			exclude[n] = true
		}
		return tickets, nil
	}
	return nil, ErrInvalidInput
}

func generateBatch(count int, used map[int]bool) ([]Ticket, bool) {
	tickets := make([]Ticket, 0, count)
	for i := 0; i < count; i++ {
		t, ok := generateOne(used)
		if !ok {
			return nil, false
		}
		for _, n := range t.Numbers() {
			used[n] = true
		}
		tickets = append(tickets, t)
	}
	return tickets, true
}

func generateOne(exclude map[int]bool) (Ticket, bool) {
	for attempt := 0; attempt < ticketAttempts; attempt++ {
		counts, ok := columnCounts(exclude)
		if !ok {
			return Ticket{}, false
		}
		occupied := layoutRows(counts)

		t, ok := fillNumbers(counts, occupied, exclude)
		if ok {
			return t, true
		}
	}
	return Ticket{}, false
}

// columnCounts picks how many cells each column occupies: every column gets
// at least one, none more than three, fifteen in total. With an exclusion
// pool in play a column's count is further capped by how many of its numbers
// are still free.
func columnCounts(exclude map[int]bool) ([TicketCols]int, bool) {
	var caps [TicketCols]int
	for c := 0; c < TicketCols; c++ {
		caps[c] = 3
		if exclude != nil {
			if free := columnFree(c, exclude); free < caps[c] {
				caps[c] = free
			}
		}
		if caps[c] < 1 {
			return [TicketCols]int{}, false
		}
	}

	var counts [TicketCols]int
	total := 0
	for c := 0; c < TicketCols; c++ {
		counts[c] = 1
		total++
	}
	guard := 0
	for total < NumbersPerTicket {
		c := rand.Intn(TicketCols)
		if counts[c] < caps[c] {
			counts[c]++
			total++
			guard = 0
			continue
		}
		guard++
		if guard > 10*TicketCols {
			// All random probes hit capped columns; sweep once to be sure.
			placed := false
			for c := 0; c < TicketCols && total < NumbersPerTicket; c++ {
				if counts[c] < caps[c] {
					counts[c]++
					total++
					placed = true
				}
			}
			if !placed {
				return [TicketCols]int{}, false
			}
			guard = 0
		}
	}
	return counts, true
}

func columnFree(c int, exclude map[int]bool) int {
	lo, hi := ColumnRange(c)
	free := 0
	for n := lo; n <= hi; n++ {
		if !exclude[n] {
			free++
		}
	}
	return free
}

// layoutRows turns per-column counts into an occupancy grid where every row
// ends with exactly 5 cells. Random placement is retried a few times; the
// greedy most-room-first fill at the end always succeeds for valid counts, so
// the function terminates for all inputs.
func layoutRows(counts [TicketCols]int) [TicketRows][TicketCols]bool {
	for attempt := 0; attempt < layoutAttempts; attempt++ {
		grid, ok := randomLayout(counts)
		if ok {
			return grid
		}
	}
	return greedyLayout(counts)
}

func randomLayout(counts [TicketCols]int) ([TicketRows][TicketCols]bool, bool) {
	var grid [TicketRows][TicketCols]bool
	rowLeft := [TicketRows]int{NumbersPerRow, NumbersPerRow, NumbersPerRow}

	order := rand.Perm(TicketCols)
	for _, c := range order {
		open := make([]int, 0, TicketRows)
		for r := 0; r < TicketRows; r++ {
			if rowLeft[r] > 0 {
				open = append(open, r)
			}
		}
		if len(open) < counts[c] {
			return grid, false
		}
		rand.Shuffle(len(open), func(i, j int) { open[i], open[j] = open[j], open[i] })
		for _, r := range open[:counts[c]] {
			grid[r][c] = true
			rowLeft[r]--
		}
	}
	return grid, true
}

func greedyLayout(counts [TicketCols]int) [TicketRows][TicketCols]bool {
	var grid [TicketRows][TicketCols]bool
	rowLeft := [TicketRows]int{NumbersPerRow, NumbersPerRow, NumbersPerRow}

	// Widest columns first, each taking the rows with the most room left.
	order := make([]int, TicketCols)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	for _, c := range order {
		for k := 0; k < counts[c]; k++ {
			best := -1
			for r := 0; r < TicketRows; r++ {
				if grid[r][c] || rowLeft[r] == 0 {
					continue
				}
				if best == -1 || rowLeft[r] > rowLeft[best] {
					best = r
				}
			}
			grid[best][c] = true
			rowLeft[best]--
		}
	}
	return grid
}

// fillNumbers draws each column's numbers from its band, sorts them, and
// places them into the column's occupied rows top to bottom.
func fillNumbers(counts [TicketCols]int, occupied [TicketRows][TicketCols]bool, exclude map[int]bool) (Ticket, bool) {
	var t Ticket
	for c := 0; c < TicketCols; c++ {
		lo, hi := ColumnRange(c)
		pool := make([]int, 0, hi-lo+1)
		for n := lo; n <= hi; n++ {
			if exclude == nil || !exclude[n] {
				pool = append(pool, n)
			}
		}
		if len(pool) < counts[c] {
			return Ticket{}, false
		}
		rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		drawn := pool[:counts[c]]
		sort.Ints(drawn)

		i := 0
		for r := 0; r < TicketRows; r++ {
			if occupied[r][c] {
				t[r][c] = drawn[i]
				i++
			}
		}
	}
	return t, true
}
