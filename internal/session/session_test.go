package session

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	may2022 int64 = 1651559872847
	may2021 int64 = may2022 - 365*24*60*60*1000
)

var timestamps = []struct {
	name string
	now  int64
}{
	{name: "2021-05", now: may2021},
	{name: "2022-05", now: may2022},
	{name: "epoch", now: 0},
	{name: "max 40-bit", now: 1<<40 - 1},
}

// TestMintFixedIsInjective checks that no two server ids share an identifier
// at the same instant under the fixed policy.
func TestMintFixedIsInjective(t *testing.T) {
	for _, ts := range timestamps {
		t.Run(ts.name, func(t *testing.T) {
			seen := make(map[int64]int64)
			for id := int64(MinServerID); id <= MaxServerID; id++ {
				sid := Mint(id, ts.now, PolicyFixed)
				prev, dup := seen[sid]
				require.False(t, dup, "servers %d and %d minted %s", prev, id, FormatBinary(sid))
				seen[sid] = id
			}
			assert.Len(t, seen, MaxServerID)
		})
	}
}

// TestMintFixedLayout checks the server byte, the timestamp field and the
// zero counter for every server id.
func TestMintFixedLayout(t *testing.T) {
	for _, ts := range timestamps {
		t.Run(ts.name, func(t *testing.T) {
			for id := int64(MinServerID); id <= MaxServerID; id++ {
				sid := Mint(id, ts.now, PolicyFixed)
				parts := Decode(sid)

				assert.Equal(t, uint8(id), ServerIDOf(sid))
				assert.Equal(t, uint8(id), parts.ServerID)
				assert.Equal(t, uint16(0), parts.Counter)
				assert.Zero(t, sid&0xFFFF, "low 16 bits must be zero")
				assert.Equal(t, ts.now&(1<<40-1), parts.TimeBits)
			}
		})
	}
}

func TestMintLegacyFloodsServerByte(t *testing.T) {
	// bit 39 of the 2022 timestamp is set, so the sign extends into the top byte
	require.NotZero(t, may2022&(1<<39))
	for id := int64(MinServerID); id <= MaxServerID; id++ {
		assert.Equal(t, uint8(0xFF), ServerIDOf(Mint(id, may2022, PolicyLegacy)))
	}

	// bit 39 clear: both policies agree
	require.Zero(t, may2021&(1<<39))
	for id := int64(MinServerID); id <= MaxServerID; id++ {
		assert.Equal(t, Mint(id, may2021, PolicyFixed), Mint(id, may2021, PolicyLegacy))
	}
}

func TestMintIsDeterministic(t *testing.T) {
	for _, p := range Policies {
		for id := int64(MinServerID); id <= MaxServerID; id += 17 {
			first := Mint(id, may2022, p)
			for i := 0; i < 10; i++ {
				assert.Equal(t, first, Mint(id, may2022, p))
			}
		}
	}
}

func TestMintUnknownPolicyUsesFixedLayout(t *testing.T) {
	assert.Equal(t, Mint(9, may2022, PolicyFixed), Mint(9, may2022, Policy(42)))
}

// TestVerify covers the regression signature: legacy collides in 2022 but
// not in 2021, fixed never collides.
func TestVerify(t *testing.T) {
	tests := []struct {
		name       string
		policy     Policy
		now        int64
		collided   bool
		collisions int
	}{
		{name: "fixed 2021", policy: PolicyFixed, now: may2021},
		{name: "fixed 2022", policy: PolicyFixed, now: may2022},
		{name: "legacy 2021", policy: PolicyLegacy, now: may2021},
		{name: "legacy 2022", policy: PolicyLegacy, now: may2022, collided: true, collisions: 254},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Verify(tt.policy, tt.now)

			assert.Equal(t, tt.policy, res.Policy)
			assert.Equal(t, tt.now, res.Now)
			assert.Equal(t, tt.collided, res.Collided)
			assert.Len(t, res.Collisions, tt.collisions)
			assert.Len(t, res.Entries, MaxServerID)
		})
	}
}

func TestVerifyReportsEveryPair(t *testing.T) {
	res := Verify(PolicyLegacy, may2022)
	require.True(t, res.Collided)

	for i, c := range res.Collisions {
		// every server collapses onto the value minted by server 1
		assert.Equal(t, int64(1), c.First)
		assert.Equal(t, int64(i+2), c.Second)
		assert.Equal(t, Mint(1, may2022, PolicyLegacy), c.SessionID)
		assert.NotEqual(t, c.First, c.Second)
	}
}

func TestVerifyEntriesInScanOrder(t *testing.T) {
	res := Verify(PolicyFixed, may2021)
	for i, e := range res.Entries {
		assert.Equal(t, int64(i+1), e.ServerID)
		assert.Equal(t, Mint(e.ServerID, may2021, PolicyFixed), e.SessionID)
	}
}

func TestVerifyAll(t *testing.T) {
	cases := []Case{
		{Policy: PolicyLegacy, Now: may2022},
		{Policy: PolicyFixed, Now: may2022},
		{Policy: PolicyLegacy, Now: may2021},
		{Policy: PolicyFixed, Now: may2021},
	}

	results := VerifyAll(cases)
	require.Len(t, results, len(cases))

	for i, c := range cases {
		assert.Equal(t, c.Policy, results[i].Policy)
		assert.Equal(t, c.Now, results[i].Now)
		assert.Equal(t, Verify(c.Policy, c.Now), results[i])
	}
	assert.True(t, results[0].Collided)
	assert.False(t, results[1].Collided)
	assert.False(t, results[2].Collided)
	assert.False(t, results[3].Collided)
}

func TestVerifyAllEmpty(t *testing.T) {
	assert.Empty(t, VerifyAll(nil))
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Verify(PolicyLegacy, may2022).WriteReport(&buf))

	out := buf.String()
	assert.Contains(t, out, "policy=legacy now=1651559872847")
	assert.Contains(t, out, "server id:   1 session id:"+FormatBinary(Mint(1, may2022, PolicyLegacy)))
	assert.Contains(t, out, "session id collision: server-1 = 1, server-2 = 255")
	assert.Contains(t, out, "result: FAILED (254 collisions)")

	buf.Reset()
	require.NoError(t, Verify(PolicyFixed, may2022).WriteReport(&buf))
	assert.NotContains(t, buf.String(), "collision")
	assert.True(t, strings.HasSuffix(buf.String(), "result: ok\n"))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteReportPropagatesErrors(t *testing.T) {
	assert.Error(t, Verify(PolicyFixed, may2022).WriteReport(failingWriter{}))
}

func TestFormatBinaryLayout(t *testing.T) {
	values := []int64{0, 1, -1, may2022, Mint(255, may2022, PolicyFixed), -1 << 63, 0x0102030405060708}
	for _, v := range values {
		s := FormatBinary(v)
		require.Len(t, s, 72)

		groups := strings.Split(s, " ")
		require.Len(t, groups, 9, "leading space yields an empty first field")
		assert.Empty(t, groups[0])
		for _, g := range groups[1:] {
			assert.Len(t, g, 8)
			assert.Empty(t, strings.Trim(g, "01"))
		}

		back, err := ParseBinary(s)
		require.NoError(t, err)
		assert.Equal(t, v, back)
	}
}

func TestFormatBinaryValues(t *testing.T) {
	assert.Equal(t, " 00000000 00000000 00000000 00000000 00000000 00000000 00000000 00000001", FormatBinary(1))
	assert.Equal(t, " 11111111 11111111 11111111 11111111 11111111 11111111 11111111 11111111", FormatBinary(-1))
	assert.Equal(t, " 00000001 00000010 00000011 00000100 00000101 00000110 00000111 00001000", FormatBinary(0x0102030405060708))
}

func TestParseBinaryRejectsMalformed(t *testing.T) {
	inputs := []string{
		"",
		"0101",
		strings.Repeat("0", 63),
		strings.Repeat("0", 65),
		strings.Repeat("2", 64),
	}
	for _, in := range inputs {
		_, err := ParseBinary(in)
		assert.ErrorIs(t, err, ErrMalformedBinary, "input %q", in)
	}
}

func TestDecode(t *testing.T) {
	sid := Mint(42, may2022, PolicyFixed) + 7
	assert.Equal(t, Parts{ServerID: 42, TimeBits: may2022 & (1<<40 - 1), Counter: 7}, Decode(sid))
}

func TestValidateServerID(t *testing.T) {
	for _, id := range []int64{1, 2, 128, 255} {
		assert.NoError(t, ValidateServerID(id))
	}
	for _, id := range []int64{-1, 0, 256, 1 << 40} {
		assert.ErrorIs(t, ValidateServerID(id), ErrInvalidServerID)
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{in: "fixed", want: PolicyFixed},
		{in: "  Legacy ", want: PolicyLegacy},
		{in: "FIXED", want: PolicyFixed},
		{in: "zk1622", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownPolicy)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestPolicyText(t *testing.T) {
	assert.Equal(t, "fixed", PolicyFixed.String())
	assert.Equal(t, "legacy", PolicyLegacy.String())
	assert.Equal(t, "policy(9)", Policy(9).String())

	var p Policy
	require.NoError(t, p.UnmarshalText([]byte("legacy")))
	assert.Equal(t, PolicyLegacy, p)
	assert.Error(t, p.UnmarshalText([]byte("nope")))

	text, err := PolicyLegacy.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "legacy", string(text))
}

func TestNewTracker(t *testing.T) {
	tr, err := NewTracker(3, may2022, PolicyFixed)
	require.NoError(t, err)

	assert.Equal(t, Mint(3, may2022, PolicyFixed), tr.Seed())
	assert.Equal(t, int64(3), tr.ServerID())
	assert.Equal(t, PolicyFixed, tr.Policy())
	assert.Zero(t, tr.Issued())

	_, err = NewTracker(0, may2022, PolicyFixed)
	assert.ErrorIs(t, err, ErrInvalidServerID)
	_, err = NewTracker(256, may2022, PolicyFixed)
	assert.ErrorIs(t, err, ErrInvalidServerID)
}

func TestTrackerNext(t *testing.T) {
	tr, err := NewTracker(200, may2022, PolicyFixed)
	require.NoError(t, err)

	first := tr.Next()
	second := tr.Next()
	assert.Equal(t, tr.Seed(), first)
	assert.Equal(t, first+1, second)
	assert.Equal(t, int64(2), tr.Issued())
	assert.Equal(t, uint8(200), ServerIDOf(second))
	assert.Equal(t, uint16(1), Decode(second).Counter)
}

func TestTrackerNextConcurrent(t *testing.T) {
	tr, err := NewTracker(7, may2021, PolicyFixed)
	require.NoError(t, err)

	const workers, perWorker = 8, 500
	ids := make(chan int64, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ids <- tr.Next()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, workers*perWorker)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
		assert.GreaterOrEqual(t, id, tr.Seed())
		assert.Less(t, id, tr.Seed()+workers*perWorker)
	}
	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, int64(workers*perWorker), tr.Issued())
}

func TestParseID(t *testing.T) {
	id := Mint(250, may2022, PolicyFixed) + 3 // negative as int64

	tests := []struct {
		name string
		in   string
	}{
		{name: "decimal", in: strconv.FormatInt(id, 10)},
		{name: "hex", in: fmt.Sprintf("0x%016x", uint64(id))},
		{name: "upper hex prefix", in: fmt.Sprintf("0X%x", uint64(id))},
		{name: "binary", in: FormatBinary(id)},
		{name: "binary without spaces", in: strings.ReplaceAll(FormatBinary(id), " ", "")},
		{name: "surrounding whitespace", in: "  " + strconv.FormatInt(id, 10) + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseID(tt.in)
			require.NoError(t, err)
			assert.Equal(t, id, got)
		})
	}

	for _, bad := range []string{"", "abc", "0xZZ", "0x1ffffffffffffffff", "99999999999999999999"} {
		_, err := ParseID(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
