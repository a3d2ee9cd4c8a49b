package trainer

import (
	"fmt"
	"math"
	"math/rand"
)

// Split shuffles rows with a source seeded by seed and holds out
// ceil(testFraction*n) of them. The same seed always yields the same
// partition of the same input.
func Split(rows []Row, testFraction float64, seed int64) (train, test []Row, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction %v outside (0, 1)", testFraction)
	}

	n := len(rows)
	nTest := int(math.Ceil(testFraction * float64(n)))
	if nTest >= n {
		return nil, nil, fmt.Errorf("cannot hold out %d of %d rows and still train", nTest, n)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	test = make([]Row, 0, nTest)
	train = make([]Row, 0, n-nTest)
	for k, i := range perm {
		if k < nTest {
			test = append(test, rows[i])
		} else {
			train = append(train, rows[i])
		}
	}
	return train, test, nil
}
