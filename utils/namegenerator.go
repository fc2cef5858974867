package utils

import (
	"fmt"
	"math/rand"

	"github.com/Pallinder/go-randomdata"
)

// UniqueNameGenerator hands out names for glTF clips and models that come
// without one. The clip library keys clips by name, so generated names must
// not collide with authored ones or each other.
type UniqueNameGenerator map[string]struct{}

func (ung *UniqueNameGenerator) init() {
	if *ung == nil {
		*ung = make(map[string]struct{})
		// seeded so reloading the same asset yields the same names
		randomdata.CustomRand(rand.New(rand.NewSource(0)))
	}
}

func (ung *UniqueNameGenerator) Reserve(name string) {
	ung.init()
	(*ung)[name] = struct{}{}
}

func (ung *UniqueNameGenerator) Generate(prefix string) string {
	ung.init()
	for {
		name := fmt.Sprintf("%s_%s", prefix, randomdata.SillyName())
		if _, exists := (*ung)[name]; !exists {
			(*ung)[name] = struct{}{}
			return name
		}
	}
}
