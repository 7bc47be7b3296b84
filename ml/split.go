package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"
)

// StratifiedSplit partitions sample indices into train and test sets while
// keeping each class's share of the test set proportional to its size.
// The test set holds ceil(testRatio*n) samples. A fixed seed always yields
// the same partition.
func StratifiedSplit(labels []int, testRatio float64, seed int64) (train, test []int, err error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("test ratio %.3f outside (0,1)", testRatio)
	}
	n := len(labels)
	if n == 0 {
		return nil, nil, errors.New("labels is empty")
	}

	numClasses := slices.Max(labels) + 1
	groups := make([][]int, numClasses)
	for i, label := range labels {
		if label < 0 {
			return nil, nil, fmt.Errorf("row %d: negative label", i)
		}
		groups[label] = append(groups[label], i)
	}

	present := 0
	for class, group := range groups {
		if len(group) == 0 {
			continue
		}
		if len(group) < 2 {
			return nil, nil, fmt.Errorf("class %d has %d member, at least 2 are required", class, len(group))
		}
		present++
	}
	if present < 2 {
		return nil, nil, errors.New("stratified split needs at least 2 classes")
	}

	nTest := int(math.Ceil(testRatio * float64(n)))
	nTrain := n - nTest
	if nTest < present || nTrain < present {
		return nil, nil, fmt.Errorf("train size %d and test size %d must each be at least the number of classes %d", nTrain, nTest, present)
	}

	quotas := apportion(groups, nTest, n)
	rng := rand.New(rand.NewSource(seed))
	train = make([]int, 0, nTrain)
	test = make([]int, 0, nTest)
	for class, group := range groups {
		shuffled := slices.Clone(group)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		q := quotas[class]
		test = append(test, shuffled[:q]...)
		train = append(train, shuffled[q:]...)
	}
	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test, nil
}

// apportion distributes total test slots over groups by largest remainder.
// A group never gives up all of its members.
func apportion(groups [][]int, total, n int) []int {
	quotas := make([]int, len(groups))
	remainders := make([]float64, len(groups))
	assigned := 0
	for class, group := range groups {
		exact := float64(len(group)) * float64(total) / float64(n)
		q := int(math.Floor(exact))
		if limit := len(group) - 1; q > limit {
			q = max(limit, 0)
		}
		quotas[class] = q
		remainders[class] = exact - float64(q)
		assigned += q
	}

	order := make([]int, len(groups))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case remainders[a] > remainders[b]:
			return -1
		case remainders[a] < remainders[b]:
			return 1
		default:
			return 0
		}
	})

	for assigned < total {
		progressed := false
		for _, class := range order {
			if assigned == total {
				break
			}
			if quotas[class] < len(groups[class])-1 {
				quotas[class]++
				assigned++
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return quotas
}
