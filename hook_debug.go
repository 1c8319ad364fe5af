//go:build variant_debug
// +build variant_debug

package variant

import (
	"go.uber.org/zap"
)

const debug = true

var debugLogger = zap.NewExample().Named("variant")

func setupAssignerTrace(a *Assigner) {
	log := debugLogger.With(
		zap.String("seed", a.config.Seed),
		zap.Stringer("algorithm", a.config.Algorithm),
		zap.Stringer("distribution", a.config.Distribution),
		zap.Int("table_size", a.config.TableSize),
	)
	a.trace = a.trace.Compose(traceAssigner{
		OnAssign: func(id string) traceAssign {
			log := log.With(zap.String("identifier", id))
			log.Debug("assigning")
			return traceAssign{
				OnHash: func(h uint32) {
					log.Debug("hashed", zap.Uint32("hash", h))
				},
				OnDistribute: func(i uint32) {
					log.Debug("distributed", zap.Uint32("index", i))
				},
				OnDone: func(v uint32, err error) {
					if err != nil {
						log.Error("assignment failed", zap.Error(err))
						return
					}
					log.Debug("assigned", zap.Uint32("variant", v))
				},
			}
		},
	})
}
