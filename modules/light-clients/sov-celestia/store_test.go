package sovcelestia_test

import (
	sdk "github.com/cosmos/cosmos-sdk/types"

	clienttypes "github.com/sovereign-ibc/sov-celestia-lc/modules/core/02-client/types"
	host "github.com/sovereign-ibc/sov-celestia-lc/modules/core/24-host"
	"github.com/sovereign-ibc/sov-celestia-lc/modules/core/exported"
	sovcelestia "github.com/sovereign-ibc/sov-celestia-lc/modules/light-clients/sov-celestia"
)

func (s *SovCelestiaTestSuite) TestConsensusStateStore() {
	s.createClient()
	s.updateClient(100, 150)
	s.updateClient(150, 160)

	store := sovcelestia.NewConsensusStateStore(s.clientStore(clientID))

	consensusState, found := store.Get(clienttypes.NewSlotHeight(150))
	s.Require().True(found)
	s.Require().Equal(s.rollup.ConsensusState(150), consensusState)

	_, found = store.Get(clienttypes.NewSlotHeight(120))
	s.Require().False(found)

	next, found := store.Next(genesisHeight)
	s.Require().True(found)
	s.Require().Equal(s.rollup.ConsensusState(150), next)

	// a height without a consensus state lies between its neighbours
	next, found = store.Next(clienttypes.NewSlotHeight(120))
	s.Require().True(found)
	s.Require().Equal(s.rollup.ConsensusState(150), next)

	previous, found := store.Previous(clienttypes.NewSlotHeight(120))
	s.Require().True(found)
	s.Require().Equal(s.rollup.ConsensusState(100), previous)

	previous, found = store.Previous(clienttypes.NewSlotHeight(160))
	s.Require().True(found)
	s.Require().Equal(s.rollup.ConsensusState(150), previous)

	_, found = store.Next(clienttypes.NewSlotHeight(160))
	s.Require().False(found)
	_, found = store.Previous(genesisHeight)
	s.Require().False(found)
}

func (s *SovCelestiaTestSuite) TestIterationKey() {
	height := clienttypes.NewSlotHeight(1 << 40)
	s.Require().Equal(height, sovcelestia.GetHeightFromIterationKey(sovcelestia.IterationKey(height)))

	s.createClient()
	s.Require().Equal(host.ConsensusStateKey(genesisHeight), sovcelestia.GetIterationKey(s.clientStore(clientID), genesisHeight))

	var heights []exported.Height
	s.updateClient(100, 150)
	sovcelestia.IterateConsensusStateAscending(s.clientStore(clientID), func(height exported.Height) bool {
		heights = append(heights, height)
		return false
	})
	s.Require().Equal([]exported.Height{genesisHeight, clienttypes.NewSlotHeight(150)}, heights)
}

func (s *SovCelestiaTestSuite) TestExportMetadata() {
	s.createClient()
	s.updateClient(100, 150)

	metadata := s.module.ExportMetadata(s.ctx, clientID)
	// processed time, processed height and iteration key of both heights
	s.Require().Len(metadata, 6)

	processedTime, found := sovcelestia.GetProcessedTime(s.clientStore(clientID), genesisHeight)
	s.Require().True(found)
	s.Require().Contains(metadata, clienttypes.NewGenesisMetadata(
		sovcelestia.ProcessedTimeKey(genesisHeight), sdk.Uint64ToBigEndian(processedTime),
	))

	processedHeight, found := sovcelestia.GetProcessedHeight(s.clientStore(clientID), clienttypes.NewSlotHeight(150))
	s.Require().True(found)
	s.Require().Contains(metadata, clienttypes.NewGenesisMetadata(
		sovcelestia.ProcessedHeightKey(clienttypes.NewSlotHeight(150)), []byte(processedHeight.String()),
	))
	s.Require().Contains(metadata, clienttypes.NewGenesisMetadata(
		sovcelestia.IterationKey(clienttypes.NewSlotHeight(150)), host.ConsensusStateKey(clienttypes.NewSlotHeight(150)),
	))

	s.Require().Nil(s.module.ExportMetadata(s.ctx, "sov-celestia-5"))
}
